package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facility-hub/facility-hub/internal/domain/sequence"
)

// CounterRepository implements sequence.Repository.
type CounterRepository struct {
	pool *pgxpool.Pool
}

func NewCounterRepository(pool *pgxpool.Pool) *CounterRepository {
	return &CounterRepository{pool: pool}
}

func (r *CounterRepository) Create(ctx context.Context, c *sequence.Counter) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO counters (domain, last_number, format, updated_at)
		VALUES ($1,$2,$3,$4)
	`, c.Domain, c.LastNumber, c.Format, c.UpdatedAt)
	err = mapError(err)
	if errors.Is(err, errDuplicate) {
		return sequence.ErrCounterExists
	}
	return err
}

func (r *CounterRepository) Get(ctx context.Context, domain sequence.Domain) (*sequence.Counter, error) {
	row := r.pool.QueryRow(ctx, `SELECT domain, last_number, format, updated_at FROM counters WHERE domain=$1`, domain)
	c, err := scanCounter(row)
	return c, mapError(err)
}

func (r *CounterRepository) List(ctx context.Context) ([]*sequence.Counter, error) {
	rows, err := r.pool.Query(ctx, `SELECT domain, last_number, format, updated_at FROM counters ORDER BY domain`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var out []*sequence.Counter
	for rows.Next() {
		c, err := scanCounter(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, c)
	}
	return out, mapError(rows.Err())
}

func scanCounter(row pgx.Row) (*sequence.Counter, error) {
	var c sequence.Counter
	var domain string
	if err := row.Scan(&domain, &c.LastNumber, &c.Format, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.Domain = sequence.Domain(domain)
	return &c, nil
}

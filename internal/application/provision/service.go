package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	appReference "github.com/facility-hub/facility-hub/internal/application/reference"
	appSequence "github.com/facility-hub/facility-hub/internal/application/sequence"
	appUser "github.com/facility-hub/facility-hub/internal/application/user"
	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/reference"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
	domainUser "github.com/facility-hub/facility-hub/internal/domain/user"
)

// Seed is the YAML document accepted by Apply.
type Seed struct {
	Counters   []CounterSeed  `yaml:"counters"`
	Buildings  []BuildingSeed `yaml:"buildings"`
	Categories []CategorySeed `yaml:"categories"`
	Users      []UserSeed     `yaml:"users"`
}

type CounterSeed struct {
	Domain string `yaml:"domain"`
	Format string `yaml:"format"`
	Start  int64  `yaml:"start"`
}

type BuildingSeed struct {
	Name  string   `yaml:"name"`
	Code  string   `yaml:"code"`
	Rooms []string `yaml:"rooms"`
}

type CategorySeed struct {
	Name          string   `yaml:"name"`
	Subcategories []string `yaml:"subcategories"`
}

type UserSeed struct {
	Username    string `yaml:"username"`
	DisplayName string `yaml:"displayName"`
	Password    string `yaml:"password"`
	Role        string `yaml:"role"`
}

// Report counts what Apply created. Existing entries are skipped.
type Report struct {
	Counters      int `json:"counters"`
	Buildings     int `json:"buildings"`
	Rooms         int `json:"rooms"`
	Categories    int `json:"categories"`
	Subcategories int `json:"subcategories"`
	Users         int `json:"users"`
}

// UserDirectory is the part of the user service provisioning needs.
type UserDirectory interface {
	CreateUser(ctx context.Context, input appUser.CreateInput) (*domainUser.User, error)
}

// Service applies seed files. Applying the same seed twice is a no-op.
type Service struct {
	sequences  *appSequence.Service
	references *appReference.Service
	users      UserDirectory
	lookup     domainUser.Repository
	logger     zerolog.Logger
}

func NewService(sequences *appSequence.Service, references *appReference.Service, users UserDirectory, lookup domainUser.Repository, logger zerolog.Logger) *Service {
	return &Service{
		sequences:  sequences,
		references: references,
		users:      users,
		lookup:     lookup,
		logger:     logger.With().Str("service", "provision").Logger(),
	}
}

// Decode parses a seed document. Unknown keys are rejected.
func Decode(r io.Reader) (*Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var seed Seed
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return &seed, nil
		}
		return nil, errs.Validation("seed: %v", err)
	}
	return &seed, nil
}

// ApplyFile decodes and applies the seed at path.
func (s *Service) ApplyFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	seed, err := Decode(f)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, seed)
}

func (s *Service) Apply(ctx context.Context, seed *Seed) (*Report, error) {
	report := &Report{}
	if err := s.applyCounters(ctx, seed.Counters, report); err != nil {
		return report, err
	}
	if err := s.applyBuildings(ctx, seed.Buildings, report); err != nil {
		return report, err
	}
	if err := s.applyCategories(ctx, seed.Categories, report); err != nil {
		return report, err
	}
	if err := s.applyUsers(ctx, seed.Users, report); err != nil {
		return report, err
	}
	s.logger.Info().
		Int("counters", report.Counters).
		Int("buildings", report.Buildings).
		Int("rooms", report.Rooms).
		Int("categories", report.Categories).
		Int("subcategories", report.Subcategories).
		Int("users", report.Users).
		Msg("seed applied")
	return report, nil
}

func (s *Service) applyCounters(ctx context.Context, counters []CounterSeed, report *Report) error {
	if err := s.sequences.EnsureDefaults(ctx); err != nil {
		return err
	}
	existing, err := s.sequences.List(ctx)
	if err != nil {
		return err
	}
	known := make(map[sequence.Domain]bool, len(existing))
	for _, c := range existing {
		known[c.Domain] = true
	}
	for _, c := range counters {
		d := sequence.Domain(c.Domain)
		if known[d] {
			continue
		}
		if _, err := s.sequences.Provision(ctx, appSequence.ProvisionInput{Domain: d, Format: c.Format, Start: c.Start}, true); err != nil {
			return fmt.Errorf("counter %q: %w", c.Domain, err)
		}
		known[d] = true
		report.Counters++
	}
	return nil
}

func (s *Service) applyBuildings(ctx context.Context, buildings []BuildingSeed, report *Report) error {
	existing, err := s.references.ListBuildings(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]*reference.Building, len(existing))
	for _, b := range existing {
		byName[b.Name] = b
	}
	for _, seed := range buildings {
		b, ok := byName[reference.NormalizeName(seed.Name)]
		if !ok {
			b, err = s.references.CreateBuilding(ctx, seed.Name, seed.Code)
			if err != nil {
				return fmt.Errorf("building %q: %w", seed.Name, err)
			}
			byName[b.Name] = b
			report.Buildings++
		}
		rooms, err := s.references.ListRooms(ctx, &b.BuildingID)
		if err != nil {
			return err
		}
		have := make(map[string]bool, len(rooms))
		for _, r := range rooms {
			have[r.Name] = true
		}
		for _, name := range seed.Rooms {
			if have[reference.NormalizeName(name)] {
				continue
			}
			r, err := s.references.CreateRoom(ctx, b.BuildingID, name)
			if err != nil {
				return fmt.Errorf("room %q in %q: %w", name, b.Name, err)
			}
			have[r.Name] = true
			report.Rooms++
		}
	}
	return nil
}

func (s *Service) applyCategories(ctx context.Context, categories []CategorySeed, report *Report) error {
	existing, err := s.references.ListCategories(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]*reference.Category, len(existing))
	for _, c := range existing {
		byName[c.Name] = c
	}
	for _, seed := range categories {
		c, ok := byName[reference.NormalizeName(seed.Name)]
		if !ok {
			c, err = s.references.CreateCategory(ctx, seed.Name)
			if err != nil {
				return fmt.Errorf("category %q: %w", seed.Name, err)
			}
			byName[c.Name] = c
			report.Categories++
		}
		subs, err := s.references.ListSubcategories(ctx, &c.CategoryID)
		if err != nil {
			return err
		}
		have := make(map[string]bool, len(subs))
		for _, sc := range subs {
			have[sc.Name] = true
		}
		for _, name := range seed.Subcategories {
			if have[reference.NormalizeName(name)] {
				continue
			}
			sc, err := s.references.CreateSubcategory(ctx, c.CategoryID, name)
			if err != nil {
				return fmt.Errorf("subcategory %q in %q: %w", name, c.Name, err)
			}
			have[sc.Name] = true
			report.Subcategories++
		}
	}
	return nil
}

func (s *Service) applyUsers(ctx context.Context, users []UserSeed, report *Report) error {
	for _, seed := range users {
		existing, err := s.lookup.GetByUsername(ctx, domainUser.NormalizeUsername(seed.Username))
		if err != nil {
			return errs.Unavailable(err)
		}
		if existing != nil {
			continue
		}
		password := os.ExpandEnv(seed.Password)
		if _, err := s.users.CreateUser(ctx, appUser.CreateInput{
			Username:    seed.Username,
			DisplayName: seed.DisplayName,
			Password:    password,
			Role:        domainUser.Role(seed.Role),
		}); err != nil {
			return fmt.Errorf("user %q: %w", seed.Username, err)
		}
		report.Users++
	}
	return nil
}

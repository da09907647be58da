package guard

import (
	"errors"
	"fmt"

	"github.com/Knetic/govaluate"
	casbin "github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/user"
)

// Actor is a verified caller.
type Actor struct {
	ID   uuid.UUID
	Role user.Role
}

type ruleKey struct {
	role user.Role
	op   request.Operation
}

// Guard decides whether an actor may run a lifecycle operation on a request.
// It looks only at the actor and the request's ownership fields, never at the
// lifecycle state, and holds no mutable state after construction.
type Guard struct {
	enforcer   *casbin.SyncedEnforcer
	predicates map[ruleKey][]*govaluate.EvaluableExpression
	// unconditional marks grants with no predicate.
	unconditional map[ruleKey]bool
}

// New builds a guard from a permission table and role inheritance pairs.
func New(rules []Rule, inheritance [][2]user.Role) (*Guard, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("load guard model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	g := &Guard{
		enforcer:      e,
		predicates:    make(map[ruleKey][]*govaluate.EvaluableExpression),
		unconditional: make(map[ruleKey]bool),
	}
	for _, r := range rules {
		if err := request.ValidateOperation(r.Operation); err != nil {
			return nil, err
		}
		if r.Role == "" {
			return nil, errors.New("rule role is required")
		}
		if _, err := e.AddPolicy(string(r.Role), objRequest, string(r.Operation)); err != nil {
			return nil, fmt.Errorf("add policy %s/%s: %w", r.Role, r.Operation, err)
		}
		key := ruleKey{role: r.Role, op: r.Operation}
		if r.Predicate == "" {
			g.unconditional[key] = true
			continue
		}
		expr, err := govaluate.NewEvaluableExpression(r.Predicate)
		if err != nil {
			return nil, fmt.Errorf("predicate %q: %w", r.Predicate, err)
		}
		g.predicates[key] = append(g.predicates[key], expr)
	}
	for _, pair := range inheritance {
		if _, err := e.AddGroupingPolicy(string(pair[0]), string(pair[1])); err != nil {
			return nil, fmt.Errorf("add role link %s -> %s: %w", pair[0], pair[1], err)
		}
	}
	return g, nil
}

// NewDefault builds the guard for the standard permission table.
func NewDefault() (*Guard, error) {
	return New(DefaultRules, DefaultInheritance)
}

// Permit reports whether actor may perform op on r. r may be nil for submit.
func (g *Guard) Permit(actor Actor, op request.Operation, r *request.Request) bool {
	return g.Check(actor, op, r) == nil
}

// Allows reports whether any rule grants op to the actor's role, ignoring
// ownership predicates.
func (g *Guard) Allows(actor Actor, op request.Operation) bool {
	ok, err := g.enforcer.Enforce(string(actor.Role), objRequest, string(op))
	return err == nil && ok
}

// Check returns a GuardRejected error with code ROLE_DENIED when no rule
// grants op to the actor's role, or OWNERSHIP_MISMATCH when a rule grants it
// but every applicable ownership predicate fails.
func (g *Guard) Check(actor Actor, op request.Operation, r *request.Request) error {
	if !g.Allows(actor, op) {
		return errs.Guard(errs.CodeRoleDenied, "role %s may not %s", actor.Role, op)
	}

	roles := []string{string(actor.Role)}
	if inherited, err := g.enforcer.GetImplicitRolesForUser(string(actor.Role)); err == nil {
		roles = append(roles, inherited...)
	}

	params := parameters(actor, r)
	for _, role := range roles {
		key := ruleKey{role: user.Role(role), op: op}
		if g.unconditional[key] {
			return nil
		}
		for _, expr := range g.predicates[key] {
			if ok, err := evaluate(expr, params); err == nil && ok {
				return nil
			}
		}
	}
	return errs.Guard(errs.CodeOwnershipMismatch, "actor %s does not own request for %s", actor.ID, op)
}

func parameters(actor Actor, r *request.Request) map[string]interface{} {
	params := map[string]interface{}{
		"actor_id":    actor.ID.String(),
		"servicer_id": "",
		"created_by":  "",
	}
	if r == nil {
		return params
	}
	if r.ServicerID != nil {
		params["servicer_id"] = r.ServicerID.String()
	}
	params["created_by"] = r.CreatedBy.String()
	return params
}

func evaluate(expr *govaluate.EvaluableExpression, params map[string]interface{}) (bool, error) {
	result, err := expr.Evaluate(params)
	if err != nil {
		return false, err
	}
	v, ok := result.(bool)
	if !ok {
		return false, errors.New("predicate did not evaluate to boolean")
	}
	return v, nil
}

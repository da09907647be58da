package guard

import (
	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/user"
)

// Rule grants role the right to perform op. When Predicate is non-empty the
// grant holds only if the expression evaluates true over actor_id,
// servicer_id and created_by.
type Rule struct {
	Role      user.Role
	Operation request.Operation
	Predicate string
}

const (
	servicerIsActor = "actor_id == servicer_id"
	ownerIsActor    = "actor_id == created_by"
)

// DefaultRules is the lifecycle permission table.
var DefaultRules = []Rule{
	{Role: user.RoleRequester, Operation: request.OpSubmit},
	{Role: user.RoleAdmin, Operation: request.OpAssignPriority},
	{Role: user.RoleAdmin, Operation: request.OpAssignServicer},
	{Role: user.RoleServicer, Operation: request.OpSendBack, Predicate: servicerIsActor},
	{Role: user.RoleServicer, Operation: request.OpSchedule, Predicate: servicerIsActor},
	{Role: user.RoleServicer, Operation: request.OpStart, Predicate: servicerIsActor},
	{Role: user.RoleServicer, Operation: request.OpComplete, Predicate: servicerIsActor},
	{Role: user.RoleServicer, Operation: request.OpHold, Predicate: servicerIsActor},
	{Role: user.RoleServicer, Operation: request.OpResume, Predicate: servicerIsActor},
	{Role: user.RoleAdmin, Operation: request.OpReassign},
	{Role: user.RoleAdmin, Operation: request.OpMarkDelayed},
	{Role: user.RoleRequester, Operation: request.OpCancel, Predicate: ownerIsActor},
	{Role: user.RoleAdmin, Operation: request.OpCancel},
}

// DefaultInheritance lists (member, role) pairs: the member holds every
// permission of the role.
var DefaultInheritance = [][2]user.Role{
	{user.RoleSystem, user.RoleAdmin},
}

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

const objRequest = "request"

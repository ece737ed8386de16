// Package policy decides what an authenticated actor may see and change.
// Every endpoint consults the same functions, both to narrow list results
// (Nodes) and to gate single-object operations (CanNode, CanProduct,
// CanUser), so visibility and mutability never drift apart.
package policy

import (
	"math"
	"strings"

	"github.com/iliyamo/trading-network/internal/model"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
)

// NormalizeRole maps stored or client-supplied role names onto a Role.
// Unknown values fall back to RoleUser.
func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleManager):
		return RoleManager
	default:
		return RoleUser
	}
}

// ValidRole reports whether role names one of the assignable roles.
func ValidRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleUser), string(RoleManager):
		return true
	}
	return false
}

// Operation is the class of access being requested.
type Operation string

const (
	OpList   Operation = "list"
	OpRead   Operation = "read"
	OpWrite  Operation = "write"
	OpDelete Operation = "delete"
)

// Actor is the user behind a request, as loaded from the store for that
// request.  OrganizationID is nil for users not attached to a network node.
type Actor struct {
	UserID         uint64
	Role           Role
	IsStaff        bool
	IsSuperuser    bool
	IsActive       bool
	IsBlocked      bool
	OrganizationID *uint64
}

// ActorFromUser builds the request actor from a stored user.
func ActorFromUser(u model.User) *Actor {
	return &Actor{
		UserID:         u.ID,
		Role:           NormalizeRole(u.Role),
		IsStaff:        u.IsStaff,
		IsSuperuser:    u.IsSuperuser,
		IsActive:       u.IsActive,
		IsBlocked:      u.IsBlocked,
		OrganizationID: u.OrganizationID,
	}
}

// SystemActor is the principal administrative commands run as.  It never
// corresponds to a stored user.
func SystemActor() *Actor {
	return &Actor{UserID: math.MaxUint64, Role: RoleManager, IsStaff: true, IsSuperuser: true, IsActive: true}
}

// Privileged reports whether the actor holds full cross-organization access.
// Staff, superusers and managers are equivalent.
func (a *Actor) Privileged() bool {
	return a != nil && (a.IsStaff || a.IsSuperuser || a.Role == RoleManager)
}

// usable is the first rule: nobody acts without an active, unblocked account.
// Blocking outranks every role.
func (a *Actor) usable() bool {
	return a != nil && a.UserID != 0 && a.IsActive && !a.IsBlocked
}

// Nodes returns the slice of the network an actor may list.  Privileged
// actors see everything, members see exactly their own organization, and
// everyone else sees nothing.
func Nodes(a *Actor) model.NodeScope {
	switch {
	case !a.usable():
		return model.NodeScope{None: true}
	case a.Privileged():
		return model.NodeScope{All: true}
	case a.OrganizationID == nil:
		return model.NodeScope{None: true}
	default:
		return model.NodeScope{NodeID: *a.OrganizationID}
	}
}

// Allows reports whether a node id falls inside the scope.
func Allows(s model.NodeScope, nodeID uint64) bool {
	switch {
	case s.None:
		return false
	case s.All:
		return true
	default:
		return nodeID != 0 && s.NodeID == nodeID
	}
}

// CanNode gates an operation on the node collection (nodeID == 0) or on a
// single node.  A node's organization is the node itself, so the decision
// never needs the stored row and cannot reveal whether an id exists.
func CanNode(a *Actor, op Operation, nodeID uint64) bool {
	if !a.usable() {
		return false
	}
	if a.Privileged() {
		return true
	}
	switch op {
	case OpDelete:
		return false
	case OpList:
		return a.OrganizationID != nil
	case OpWrite:
		if nodeID == 0 {
			return a.OrganizationID != nil
		}
	}
	return Allows(Nodes(a), nodeID)
}

// CanProduct gates catalog operations.  Products belong to no organization:
// any usable actor reads them, only privileged actors change them.
func CanProduct(a *Actor, op Operation) bool {
	if !a.usable() {
		return false
	}
	switch op {
	case OpList, OpRead:
		return true
	default:
		return a.Privileged()
	}
}

// CanUser gates profile operations.  targetID is zero for the user
// collection.  Reading another user's profile is allowed; the returned view
// is narrowed by ProfileViewFor.
func CanUser(a *Actor, op Operation, targetID uint64) bool {
	if !a.usable() {
		return false
	}
	if a.Privileged() {
		return true
	}
	switch op {
	case OpRead:
		return targetID != 0
	case OpWrite:
		return targetID != 0 && targetID == a.UserID
	default:
		return false
	}
}

// CanAdministerUsers gates blocking, role changes and organization
// assignment.
func CanAdministerUsers(a *Actor) bool {
	return a.usable() && a.Privileged()
}

// ProfileView selects the field set returned for a user profile.
type ProfileView int

const (
	ViewPublic ProfileView = iota
	ViewPrivate
)

// ProfileViewFor returns the private view for the profile owner and for
// privileged actors, the public view for everybody else.
func ProfileViewFor(a *Actor, targetID uint64) ProfileView {
	if a != nil && (a.UserID == targetID || a.Privileged()) {
		return ViewPrivate
	}
	return ViewPublic
}

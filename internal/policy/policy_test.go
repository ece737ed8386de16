package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/trading-network/internal/model"
)

func orgID(id uint64) *uint64 { return &id }

func member(org uint64) *Actor {
	return &Actor{UserID: 10, Role: RoleUser, IsActive: true, OrganizationID: orgID(org)}
}

func manager() *Actor {
	return &Actor{UserID: 20, Role: RoleManager, IsActive: true}
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, RoleManager, NormalizeRole(" Manager "))
	assert.Equal(t, RoleUser, NormalizeRole("users"))
	assert.Equal(t, RoleUser, NormalizeRole(""))
	assert.True(t, ValidRole("manager"))
	assert.False(t, ValidRole("admin"))
}

func TestPrivileged(t *testing.T) {
	assert.True(t, manager().Privileged())
	assert.True(t, (&Actor{UserID: 1, IsStaff: true}).Privileged())
	assert.True(t, (&Actor{UserID: 1, IsSuperuser: true}).Privileged())
	assert.False(t, member(1).Privileged())
	var nobody *Actor
	assert.False(t, nobody.Privileged())
}

func TestNodes(t *testing.T) {
	tests := []struct {
		name  string
		actor *Actor
		want  model.NodeScope
	}{
		{"anonymous", nil, model.NodeScope{None: true}},
		{"manager", manager(), model.NodeScope{All: true}},
		{"staff", &Actor{UserID: 3, IsActive: true, IsStaff: true}, model.NodeScope{All: true}},
		{"member", member(7), model.NodeScope{NodeID: 7}},
		{"no organization", &Actor{UserID: 4, IsActive: true}, model.NodeScope{None: true}},
		{"inactive member", &Actor{UserID: 5, OrganizationID: orgID(7)}, model.NodeScope{None: true}},
		{"blocked manager", &Actor{UserID: 6, Role: RoleManager, IsActive: true, IsBlocked: true}, model.NodeScope{None: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Nodes(tt.actor))
		})
	}
}

func TestCanNode(t *testing.T) {
	m := member(7)
	assert.True(t, CanNode(m, OpList, 0))
	assert.True(t, CanNode(m, OpRead, 7))
	assert.True(t, CanNode(m, OpWrite, 7))
	assert.True(t, CanNode(m, OpWrite, 0), "members may create nodes")
	assert.False(t, CanNode(m, OpRead, 8), "sibling organizations stay hidden")
	assert.False(t, CanNode(m, OpWrite, 8))
	assert.False(t, CanNode(m, OpDelete, 7), "delete needs an elevated role")

	assert.True(t, CanNode(manager(), OpDelete, 8))

	loner := &Actor{UserID: 4, IsActive: true}
	assert.False(t, CanNode(loner, OpList, 0))
	assert.False(t, CanNode(loner, OpWrite, 0))

	blocked := member(7)
	blocked.IsBlocked = true
	assert.False(t, CanNode(blocked, OpRead, 7))
	assert.False(t, CanNode(blocked, OpWrite, 7))
}

// The list pre-filter and the object gate must agree for every node id.
func TestScopeMatchesGate(t *testing.T) {
	actors := []*Actor{nil, manager(), member(1), member(2), {UserID: 9, IsActive: true}}
	for _, a := range actors {
		scope := Nodes(a)
		for id := uint64(1); id <= 3; id++ {
			assert.Equal(t, Allows(scope, id), CanNode(a, OpRead, id), "actor=%+v node=%d", a, id)
		}
	}
}

func TestCanProduct(t *testing.T) {
	loner := &Actor{UserID: 4, IsActive: true}
	assert.True(t, CanProduct(loner, OpList))
	assert.True(t, CanProduct(loner, OpRead))
	assert.False(t, CanProduct(loner, OpWrite))
	assert.False(t, CanProduct(loner, OpDelete))
	assert.True(t, CanProduct(manager(), OpWrite))
	assert.False(t, CanProduct(nil, OpRead))
}

func TestCanUser(t *testing.T) {
	m := member(1)
	assert.True(t, CanUser(m, OpRead, m.UserID))
	assert.True(t, CanUser(m, OpWrite, m.UserID))
	assert.True(t, CanUser(m, OpRead, 99))
	assert.False(t, CanUser(m, OpWrite, 99))
	assert.False(t, CanUser(m, OpList, 0))
	assert.True(t, CanUser(manager(), OpList, 0))
	assert.True(t, CanUser(manager(), OpWrite, 99))
	assert.False(t, CanAdministerUsers(m))
	assert.True(t, CanAdministerUsers(manager()))
}

func TestProfileViewFor(t *testing.T) {
	m := member(1)
	assert.Equal(t, ViewPrivate, ProfileViewFor(m, m.UserID))
	assert.Equal(t, ViewPublic, ProfileViewFor(m, 99))
	assert.Equal(t, ViewPrivate, ProfileViewFor(manager(), 99))
}

func TestSystemActor(t *testing.T) {
	a := SystemActor()
	assert.True(t, a.Privileged())
	assert.True(t, CanNode(a, OpDelete, 42))
	assert.True(t, Nodes(a).All)
}

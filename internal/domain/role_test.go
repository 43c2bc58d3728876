package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
	}{
		{"ADMIN", RoleAdmin},
		{"ROLE_ADMIN", RoleAdmin},
		{"role_teacher", RoleTeacher},
		{" student ", RoleStudent},
		{"HR_ANALYST", RoleHRAnalyst},
		{"ROLE_LIBRARIAN", RoleLibrarian},
		{"technician", RoleTechnician},
		{"EMPLOYEE", RoleEmployee},
		{"SUPERUSER", RoleUnrecognized},
		{"", RoleUnrecognized},
		{"ROLE_", RoleUnrecognized},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseRole(tc.in))
		})
	}
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "HR_ANALYST", RoleHRAnalyst.String())
	assert.Equal(t, "UNRECOGNIZED", Role(200).String())
	assert.False(t, Role(200).Recognized())
	for _, r := range AllRoles {
		assert.True(t, r.Recognized(), r.String())
		assert.Equal(t, r, ParseRole(r.String()))
	}
}

func TestParseRoleSetDeduplicates(t *testing.T) {
	set := ParseRoleSet([]string{"ROLE_ADMIN", "ADMIN", "teacher", "weird"})
	assert.Equal(t, RoleSet{RoleAdmin, RoleTeacher, RoleUnrecognized}, set)
	assert.Equal(t, []string{"ADMIN", "TEACHER", "UNRECOGNIZED"}, set.Strings())
}

func TestRoleSetIntersects(t *testing.T) {
	held := NewRoleSet(RoleTeacher, RoleUnrecognized)

	assert.True(t, held.Intersects(NewRoleSet(RoleAdmin, RoleTeacher)))
	assert.False(t, held.Intersects(NewRoleSet(RoleAdmin)))
	assert.False(t, held.Intersects(NewRoleSet(RoleUnrecognized)))
	assert.False(t, RoleSet{}.Intersects(NewRoleSet(RoleAdmin)))
}

func TestIdentityFromClaims(t *testing.T) {
	claims := Claims{
		Subject:       "ana",
		UserID:        7,
		PersonID:      70,
		FullName:      "Ana Souza",
		InstitutionID: 3,
		Roles:         NewRoleSet(RoleAdmin),
	}
	id := NewIdentity(claims)

	assert.Equal(t, int64(7), id.ID)
	assert.Equal(t, "ana", id.Login)
	assert.Equal(t, []string{"ADMIN"}, id.RoleNames)
	assert.True(t, id.HasAnyRole(RoleAdmin, RoleHRAnalyst))
	assert.False(t, id.HasAnyRole(RoleStudent))

	var none *Identity
	assert.False(t, none.HasAnyRole(RoleAdmin))
}

func TestSnapshotAuthenticatedFollowsState(t *testing.T) {
	assert.False(t, SessionSnapshot{State: SessionUnknown}.Authenticated())
	assert.False(t, SessionSnapshot{State: SessionUnknown}.Resolved())
	assert.True(t, SessionSnapshot{State: SessionAuthenticated, Identity: &Identity{}}.Authenticated())
	assert.True(t, SessionSnapshot{State: SessionUnauthenticated}.Resolved())
}

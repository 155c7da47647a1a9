package roles

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	r, err := ParseRole("  Admin ")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, r)

	_, err = ParseRole("superuser")
	require.Error(t, err)

	_, err = ParseRole("")
	require.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	st, err := ParseStatus("ACTIVE")
	require.NoError(t, err)
	require.Equal(t, StatusActive, st)

	_, err = ParseStatus("archived")
	require.Error(t, err)
}

func TestAdminArea(t *testing.T) {
	t.Parallel()

	require.True(t, RoleOwner.AdminArea())
	require.True(t, RoleAdmin.AdminArea())
	require.True(t, RoleStaff.AdminArea())
	require.False(t, RolePlayer.AdminArea())
}

func TestAssignable(t *testing.T) {
	t.Parallel()

	require.False(t, RoleOwner.Assignable())
	require.True(t, RoleAdmin.Assignable())
	require.True(t, RoleStaff.Assignable())
	require.True(t, RolePlayer.Assignable())
	require.False(t, Role("nope").Assignable())
}

func TestAtLeast(t *testing.T) {
	t.Parallel()

	require.True(t, RoleOwner.AtLeast(RoleAdmin))
	require.True(t, RoleStaff.AtLeast(RoleStaff))
	require.False(t, RolePlayer.AtLeast(RoleStaff))
}

package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserContext_GrantedRoles(t *testing.T) {
	t.Parallel()

	t.Run("system role first then extras", func(t *testing.T) {
		t.Parallel()
		u := UserContext{SystemRole: AdminRole, Roles: []string{"moderator", AdminRole, ""}}
		require.Equal(t, []string{AdminRole, "moderator"}, u.GrantedRoles())
	})

	t.Run("anonymous user has no roles", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, UserContext{}.GrantedRoles())
	})
}

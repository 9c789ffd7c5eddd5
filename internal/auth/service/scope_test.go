package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopeNegotiator(t *testing.T) {
	t.Parallel()

	n := NewScopeNegotiator()

	t.Run("grants the supported subset silently", func(t *testing.T) {
		granted := n.Negotiate([]string{"openid", "profile", "admin:everything"})
		require.Equal(t, []string{"openid", "profile"}, granted)
	})

	t.Run("unknown scopes never cause an error, just disappear", func(t *testing.T) {
		granted := n.Negotiate([]string{"made-up", "also-fake"})
		require.Empty(t, granted)
	})

	t.Run("empty request yields empty grant", func(t *testing.T) {
		require.Empty(t, n.Negotiate(nil))
	})

	t.Run("duplicates collapse and order is preserved", func(t *testing.T) {
		granted := n.Negotiate([]string{"phone", "openid", "phone", "openid"})
		require.Equal(t, []string{"phone", "openid"}, granted)
	})

	t.Run("granted is always a subset of requested", func(t *testing.T) {
		requested := []string{"openid", "email", "bogus", "offline_access"}
		granted := n.Negotiate(requested)
		for _, s := range granted {
			require.Contains(t, requested, s)
			require.Contains(t, SupportedScopes(), s)
		}
	})
}

func TestIntersectScopes(t *testing.T) {
	t.Parallel()

	t.Run("returns intersection without duplicates", func(t *testing.T) {
		result := intersectScopes(
			[]string{"openid", "openid", "profile", "unknown"},
			[]string{"openid", "profile"},
		)
		require.Equal(t, []string{"openid", "profile"}, result)
	})

	t.Run("returns empty when no overlap", func(t *testing.T) {
		require.Empty(t, intersectScopes([]string{"a"}, []string{"b"}))
	})
}

package jwtx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/signetauth/signet/pkg/jwtx"
)

func TestClaimsScopes(t *testing.T) {
	tests := []struct {
		name  string
		scope string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "openid", []string{"openid"}},
		{"multiple", "openid profile offline_access", []string{"openid", "profile", "offline_access"}},
		{"extra whitespace", "  openid   profile ", []string{"openid", "profile"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := jwtx.Claims{Scope: tt.scope}
			require.Equal(t, tt.want, c.Scopes())
		})
	}
}

func TestClaimsHasScope(t *testing.T) {
	c := jwtx.Claims{Scope: "openid profile"}

	require.True(t, c.HasScope("openid"))
	require.True(t, c.HasScope("profile"))
	require.False(t, c.HasScope("email"))
	require.False(t, c.HasScope("open")) // no prefix matching
}

func TestNewJTI(t *testing.T) {
	a := jwtx.NewJTI()
	b := jwtx.NewJTI()

	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}

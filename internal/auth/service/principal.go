package service

import (
	"sort"

	"github.com/signetauth/signet/internal/auth/domain"
)

// PrincipalBuilder assembles the authenticated principal a grant produces.
// ExtraClaims lets deployments attach static claims (e.g. tenant markers)
// which flow through destination resolution like any other claim type.
type PrincipalBuilder struct {
	ExtraClaims map[string]string
}

// Build constructs a principal for the user with the already negotiated
// scopes. Claims are added in a fixed order, each with its destinations
// resolved against the granted scopes. The security stamp is attached so the
// resolver can demonstrate it never leaks, not because it is ever emitted.
func (b *PrincipalBuilder) Build(
	u domain.User,
	sessionID string,
	grantedScopes []string,
) *domain.Principal {
	p := &domain.Principal{
		Subject:       u.ID,
		SessionID:     sessionID,
		GrantedScopes: grantedScopes,
	}

	addClaim := func(claimType, value string) {
		if value == "" {
			return
		}
		p.Claims = append(p.Claims, domain.Claim{
			Type:         claimType,
			Value:        value,
			Destinations: ResolveDestinations(claimType, grantedScopes),
		})
	}

	addClaim(domain.ClaimTypeName, u.PreferredName)
	addClaim(domain.ClaimTypePhoneNumber, u.PhoneNumber)
	addClaim(domain.ClaimTypeRole, u.Role)
	addClaim(domain.ClaimTypeSecurityStamp, u.SecurityStamp)

	for _, kv := range sortedClaims(b.ExtraClaims) {
		addClaim(kv[0], kv[1])
	}

	return p
}

// sortedClaims flattens the extra claim map in key order so principals are
// deterministic across processes.
func sortedClaims(m map[string]string) [][2]string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, m[k]})
	}
	return out
}

package service

// Scopes the token endpoint knows how to grant. Anything outside this set is
// silently dropped during negotiation.
const (
	ScopeOpenID        = "openid"
	ScopeEmail         = "email"
	ScopeProfile       = "profile"
	ScopePhone         = "phone"
	ScopeRoles         = "roles"
	ScopeOfflineAccess = "offline_access"
)

// SupportedScopes returns the full set of grantable scopes, in stable order.
func SupportedScopes() []string {
	return []string{
		ScopeOpenID,
		ScopeEmail,
		ScopeProfile,
		ScopePhone,
		ScopeRoles,
		ScopeOfflineAccess,
	}
}

// ScopeNegotiator computes granted scopes from a request. Negotiation never
// fails: unknown scopes are dropped, not rejected, and the result preserves
// request order with duplicates removed.
type ScopeNegotiator struct {
	Supported []string
}

func NewScopeNegotiator() *ScopeNegotiator {
	return &ScopeNegotiator{Supported: SupportedScopes()}
}

// Negotiate intersects the requested scopes with the supported set. An empty
// request yields an empty grant.
func (n *ScopeNegotiator) Negotiate(requested []string) []string {
	return intersectScopes(requested, n.Supported)
}

// intersectScopes returns elements of a that also appear in b, preserving
// a's order and deduplicating.
func intersectScopes(a, b []string) []string {
	allowed := make(map[string]struct{}, len(b))
	for _, s := range b {
		allowed[s] = struct{}{}
	}

	var out []string
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		if _, ok := allowed[s]; !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// containsScope reports whether the slice holds the given scope.
func containsScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}

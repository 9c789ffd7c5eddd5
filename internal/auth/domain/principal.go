package domain

// Principal is the authenticated identity a grant produces. Claims are kept
// in insertion order so emitted tokens are deterministic for a given user.
type Principal struct {
	Subject       string
	SessionID     string
	Claims        []Claim
	GrantedScopes []string
}

// HasScope reports whether the principal was granted the named scope.
func (p *Principal) HasScope(scope string) bool {
	for _, s := range p.GrantedScopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Claim returns the first claim of the given type, if present.
func (p *Principal) Claim(claimType string) (Claim, bool) {
	for _, c := range p.Claims {
		if c.Type == claimType {
			return c, true
		}
	}
	return Claim{}, false
}

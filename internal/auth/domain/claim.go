package domain

// Destination identifies a token a claim is emitted into.
type Destination string

const (
	DestinationAccessToken   Destination = "access_token"
	DestinationIdentityToken Destination = "id_token"
)

// Standard claim types carried on an authenticated principal.
const (
	ClaimTypeSubject       = "sub"
	ClaimTypeName          = "name"
	ClaimTypePhoneNumber   = "phone_number"
	ClaimTypeRole          = "role"
	ClaimTypeSecurityStamp = "security_stamp"
)

// Claim is a single typed value attached to a principal, together with the
// tokens it may be disclosed in. An empty Destinations slice means the claim
// is withheld from every token.
type Claim struct {
	Type         string
	Value        string
	Destinations []Destination
}

// InAccessToken reports whether the claim is disclosed in access tokens.
func (c Claim) InAccessToken() bool {
	return c.hasDestination(DestinationAccessToken)
}

// InIdentityToken reports whether the claim is disclosed in identity tokens.
func (c Claim) InIdentityToken() bool {
	return c.hasDestination(DestinationIdentityToken)
}

func (c Claim) hasDestination(d Destination) bool {
	for _, dest := range c.Destinations {
		if dest == d {
			return true
		}
	}
	return false
}

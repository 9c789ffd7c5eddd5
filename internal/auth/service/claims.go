package service

import "github.com/signetauth/signet/internal/auth/domain"

// ResolveDestinations decides which tokens a claim may be disclosed in, given
// the scopes granted to the principal. It is a pure function: every claim
// type resolves to something, and security_stamp resolves to nothing at all.
//
// The rules:
//   - name is always in the access token, and in the identity token when
//     profile was granted
//   - phone_number is always in the access token, and in the identity token
//     when phone was granted
//   - role is always in the access token, and in the identity token when
//     roles was granted
//   - security_stamp is never disclosed anywhere
//   - everything else goes to the identity token only
func ResolveDestinations(claimType string, grantedScopes []string) []domain.Destination {
	switch claimType {
	case domain.ClaimTypeName:
		return accessPlusIdentityIf(grantedScopes, ScopeProfile)
	case domain.ClaimTypePhoneNumber:
		return accessPlusIdentityIf(grantedScopes, ScopePhone)
	case domain.ClaimTypeRole:
		return accessPlusIdentityIf(grantedScopes, ScopeRoles)
	case domain.ClaimTypeSecurityStamp:
		return nil
	default:
		return []domain.Destination{domain.DestinationIdentityToken}
	}
}

func accessPlusIdentityIf(granted []string, scope string) []domain.Destination {
	dests := []domain.Destination{domain.DestinationAccessToken}
	if containsScope(granted, scope) {
		dests = append(dests, domain.DestinationIdentityToken)
	}
	return dests
}

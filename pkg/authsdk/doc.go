/*
Package authsdk provides the wire types for the signet token service and a
small client SDK for talking to it.

The server side uses the OAuth2Error values to write RFC 6749 error
responses; the client side parses the same shapes back into typed errors.

	client := authsdk.NewSDKClient("https://auth.example.com")
	tokens, err := client.PasswordGrant(ctx, "alice", "Secr3t!", []string{"openid", "profile"})
	if err != nil {
		var oautherr *authsdk.OAuth2Error
		if errors.As(err, &oautherr) {
			// oautherr.Code is the RFC 6749 error code
		}
	}

	refreshed, err := client.RefreshGrant(ctx, tokens.RefreshToken)
*/
package authsdk

package authsdk

// ErrorResponse represents a standard OAuth2 error response per RFC 6749.
// Used internally for parsing HTTP error responses; client code should use
// the OAuth2Error type from errors.go instead.
type ErrorResponse struct {
	// Error is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
// Returned from POST /connect/token for both the password and refresh_token
// grant types.
type TokenResponse struct {
	// AccessToken is the JWT access token used to authenticate API requests
	AccessToken string `json:"access_token"`

	// IdentityToken is the OIDC identity token, present when the openid
	// scope was granted
	IdentityToken string `json:"id_token,omitempty"`

	// RefreshToken is the opaque refresh token used to obtain new access
	// tokens. Single use: redeeming it rotates in a replacement.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "Bearer" per OAuth2 spec
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of scopes granted to this token
	Scope string `json:"scope,omitempty"`
}

// LogoutResponse reports the session state transition performed by the
// logout endpoint, for diagnostics.
type LogoutResponse struct {
	SignedInBefore bool `json:"signed_in_before"`
	SignedInAfter  bool `json:"signed_in_after"`
}

// HealthChecks reports the state of critical dependencies on /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// HealthResponse is the /livez and /readyz body.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

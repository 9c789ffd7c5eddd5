package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signetauth/signet/internal/auth/service"
	"github.com/signetauth/signet/internal/auth/store"
	"github.com/signetauth/signet/pkg/httpx"
	"github.com/signetauth/signet/pkg/jwtx"
	"github.com/signetauth/signet/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	TokenService   *service.TokenService
	Refresh        *service.RefreshTokenManager
	SessionRevoker *service.SessionRevoker
	Credentials    *service.CredentialValidator
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	issuer, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerAccount()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth2() {
	// POST /connect/token - strict rate limit by IP + username form field to
	// slow down credential stuffing without starving other tenants on the
	// same NAT.
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /connect/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)

	// GET|POST /connect/logout - requires a verified bearer token carrying
	// the session id to sign out.
	logoutHandler := &LogoutHandler{SessionRevoker: r.SessionRevoker}
	securedLogout := httpx.Chain(logoutHandler,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)
	r.Mux.Handle("GET /connect/logout", securedLogout)
	r.Mux.Handle("POST /connect/logout", securedLogout)

	// POST /connect/revoke - moderate rate limit
	revokeHandler := &RevokeHandler{Refresh: r.Refresh}
	r.Mux.Handle("POST /connect/revoke",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerAccount() {
	// POST /account/password - authenticated, strict rate limit: password
	// changes verify the current secret, so this is a guessing surface too.
	passwordHandler := &PasswordHandler{Credentials: r.Credentials}
	r.Mux.Handle("POST /account/password",
		httpx.Chain(passwordHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - generous limits, monitoring systems poll these
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.Handle("GET /metrics", promhttp.Handler())
}

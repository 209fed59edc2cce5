// Package api implements the passwordless login flow: challenge issuance on
// login, out-of-band approval via ApproveAPI, and verification on the
// redirect callback. All per-client state lives in the sealed session cookie.
package api

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/magiclink/approveapi"
	"github.com/jmcleod/magiclink/session"
)

// PromptSender dispatches an approval prompt to a user. *approveapi.Client
// satisfies it; tests substitute a recording stub.
type PromptSender interface {
	CreatePrompt(ctx context.Context, req approveapi.CreatePromptRequest) (*approveapi.Prompt, error)
}

// API holds the dependencies needed by the login handlers.
type API struct {
	sessions   *session.Codec
	prompts    PromptSender
	webURL     string
	audit      *auditLogger
	auditStore *AuditStore
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithAuditStore persists audit events to the given store in addition to the
// structured log.
func WithAuditStore(store *AuditStore) Option {
	return func(a *API) {
		a.auditStore = store
	}
}

// New creates a new API instance. webURL is the externally reachable origin
// used to build approve-redirect URLs.
func New(sessions *session.Codec, prompts PromptSender, webURL string, opts ...Option) *API {
	a := &API{
		sessions: sessions,
		prompts:  prompts,
		webURL:   webURL,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	a.audit.store = a.auditStore
	return a
}

// Router returns a chi.Router with the login flow routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(SecurityHeaders)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/openapi.yaml",
		Path:    "docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/openapi.yaml",
		Path:    "redoc",
	}, nil))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Get("/", a.Home)
	r.Get("/login", a.LoginPage)
	r.Post("/login", a.Login)
	r.Get("/verify_login", a.VerifyLogin)

	return r
}

// Package custodesk is a small customer-management web application.
//
// An App wires a route table, the shared key/value store behind persistent
// bindings, the change-relay endpoint, and the global application state
// into a single http.Handler:
//
//	app := custodesk.New(custodesk.Config{})
//	http.ListenAndServe(":8080", app)
//
// Routes: /login (sign-in page), / (redirects to /customers), /customers
// (list) and /customers/{customerID} (detail) under a shared layout, plus
// JSON APIs under /api/ and the relay hub under /_sync.
package custodesk

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/custodesk-dev/custodesk/internal/appstate"
	"github.com/custodesk-dev/custodesk/internal/customers"
	"github.com/custodesk-dev/custodesk/pkg/events"
	"github.com/custodesk-dev/custodesk/pkg/relay"
	"github.com/custodesk-dev/custodesk/pkg/storage"
)

// PageHandler produces a page's content fragment.
type PageHandler func(*Ctx) (template.HTML, error)

// Layout wraps page content in shared chrome. Layouts are applied
// innermost to outermost.
type Layout func(*Ctx, template.HTML) (template.HTML, error)

// APIHandler produces a JSON-encodable response.
type APIHandler func(*Ctx) (any, error)

// App is the application entry point. It implements http.Handler.
type App struct {
	mux    *chi.Mux
	config Config
	logger *slog.Logger
	bus    *events.Bus
	store  storage.Store
	repo   customers.Repository
	hub    *relay.Hub

	notFound PageHandler
}

// New creates the application with the given configuration and registers
// the route table.
func New(cfg Config) *App {
	if cfg.Sync.Path == "" {
		cfg.Sync.Path = DefaultSyncConfig().Path
	}
	if cfg.API.MaxBodyBytes == 0 {
		cfg.API.MaxBodyBytes = DefaultAPIConfig().MaxBodyBytes
	}
	if cfg.Static.Prefix == "" {
		cfg.Static.Prefix = DefaultStaticConfig().Prefix
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = events.Default()
	}
	store := cfg.Store
	if store == nil {
		store = storage.NewMemoryStore()
	}
	repo := cfg.Repo
	if repo == nil {
		repo = customers.NewSeededRepository()
	}

	app := &App{
		mux:    chi.NewRouter(),
		config: cfg,
		logger: logger,
		bus:    bus,
		store:  store,
		repo:   repo,
	}

	for _, mw := range cfg.Middleware {
		app.mux.Use(mw)
	}

	if !cfg.Sync.Disabled {
		app.hub = relay.NewHub(relay.WithHubLogger(logger))
		app.mux.Handle(cfg.Sync.Path, app.hub)
	}
	app.mountStatic()

	appstate.SetDeps(appstate.Deps{Repo: repo, Logger: logger})
	appstate.RegisterListeners()
	registerRoutes(app)

	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// Handler returns the App as an http.Handler.
// This is useful for explicit type conversion or middleware wrapping.
func (a *App) Handler() http.Handler {
	return a
}

// =============================================================================
// Route Registration
// =============================================================================

// Page registers a page handler with optional layouts.
// Layouts are applied in order (root to leaf):
//
//	app.Page("/customers/{customerID}", detail, rootLayout)
func (a *App) Page(path string, handler PageHandler, layouts ...Layout) {
	a.mux.Get(path, func(w http.ResponseWriter, r *http.Request) {
		a.renderPage(w, r, handler, layouts)
	})
}

// API registers an API handler for the given HTTP method and path.
// API handlers return JSON responses.
func (a *App) API(method, path string, handler APIHandler) {
	a.mux.MethodFunc(method, path, func(w http.ResponseWriter, r *http.Request) {
		a.handleAPI(w, r, handler)
	})
}

// Redirect registers a route that redirects to target with 302 Found.
func (a *App) Redirect(path, target string) {
	a.mux.Get(path, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	})
}

// SetNotFound sets the handler for unmatched paths.
// Without it the router's default 404 applies.
func (a *App) SetNotFound(handler PageHandler) {
	a.notFound = handler
	a.mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.renderPage(w, r, func(ctx *Ctx) (template.HTML, error) {
			ctx.SetStatus(http.StatusNotFound)
			return handler(ctx)
		}, nil)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Store returns the shared key/value store.
func (a *App) Store() storage.Store {
	return a.store
}

// Bus returns the change-notification bus.
func (a *App) Bus() *events.Bus {
	return a.bus
}

// Hub returns the relay hub, or nil when sync is disabled.
func (a *App) Hub() *relay.Hub {
	return a.hub
}

// Repo returns the customer repository.
func (a *App) Repo() customers.Repository {
	return a.repo
}

// Config returns the app configuration.
func (a *App) Config() Config {
	return a.config
}

// Run starts an HTTP server on addr and blocks.
func (a *App) Run(addr string) error {
	a.logger.Info("listening", "addr", addr)
	return http.ListenAndServe(addr, a.Handler())
}

// =============================================================================
// Rendering
// =============================================================================

var shellTmpl = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>{{.Content}}</body></html>
`))

// renderPage runs a page handler, applies layouts innermost to outermost,
// and writes the document shell.
func (a *App) renderPage(w http.ResponseWriter, r *http.Request, handler PageHandler, layouts []Layout) {
	ctx := newCtx(w, r, a.logger)
	if handler == nil {
		http.NotFound(w, r)
		return
	}

	content, err := handler(ctx)
	if err == nil {
		for i := len(layouts) - 1; i >= 0; i-- {
			content, err = layouts[i](ctx, content)
			if err != nil {
				break
			}
		}
	}

	if url, code, ok := ctx.redirectInfo(); ok {
		http.Redirect(w, r, url, code)
		return
	}

	if err != nil {
		a.renderPageError(ctx, err)
		return
	}

	title := ctx.Title()
	if title == "" {
		title = "custodesk"
	}

	var buf bytes.Buffer
	if err := shellTmpl.Execute(&buf, struct {
		Title   string
		Content template.HTML
	}{title, content}); err != nil {
		a.logger.Error("render failed", "path", r.URL.Path, "error", err)
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(ctx.Status())
	w.Write(buf.Bytes())
}

// renderPageError maps a handler error onto an HTTP error response.
func (a *App) renderPageError(ctx *Ctx, err error) {
	code := http.StatusInternalServerError
	msg := "internal server error"

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		msg = httpErr.Message
	}
	if code >= 500 {
		a.logger.Error("page handler failed", "path", ctx.Request().URL.Path, "error", err)
		if a.config.DevMode {
			msg = err.Error()
		}
	}
	http.Error(ctx.Writer(), msg, code)
}

// handleAPI runs an API handler and writes a JSON response.
func (a *App) handleAPI(w http.ResponseWriter, r *http.Request, handler APIHandler) {
	ctx := newCtx(w, r, a.logger)
	r.Body = http.MaxBytesReader(w, r.Body, a.config.API.MaxBodyBytes)

	out, err := handler(ctx)

	if url, code, ok := ctx.redirectInfo(); ok {
		http.Redirect(w, r, url, code)
		return
	}

	if err != nil {
		code := http.StatusInternalServerError
		if sc, ok := err.(interface{ StatusCode() int }); ok {
			code = sc.StatusCode()
		}
		if code >= 500 {
			a.logger.Error("API handler failed", "path", r.URL.Path, "error", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	if ctx.Status() == http.StatusNoContent || out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ctx.Status())
	json.NewEncoder(w).Encode(out)
}

// readJSONBody decodes an API request body into dst.
func readJSONBody(ctx *Ctx, dst any) error {
	raw, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &HTTPError{Code: http.StatusRequestEntityTooLarge, Message: "request body too large", Err: err}
		}
		return BadRequest(err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return BadRequestf("invalid JSON body: %v", err)
	}
	return nil
}

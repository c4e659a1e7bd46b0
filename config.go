package custodesk

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/custodesk-dev/custodesk/internal/customers"
	"github.com/custodesk-dev/custodesk/pkg/events"
	"github.com/custodesk-dev/custodesk/pkg/storage"
)

// Config configures an App. The zero value is usable: every field falls
// back to a sensible default in New.
type Config struct {
	// Logger is used for request and degradation logging.
	// Default: slog.Default().
	Logger *slog.Logger

	// DevMode enables development conveniences (verbose error pages).
	DevMode bool

	// Store is the shared key/value store backing persistent bindings.
	// Default: an in-memory store.
	Store storage.Store

	// Repo provides customer records.
	// Default: a seeded in-memory repository.
	Repo customers.Repository

	// Bus is the event bus for storage change notifications.
	// Default: events.Default().
	Bus *events.Bus

	// Middleware is applied to every route, outermost first.
	Middleware []func(http.Handler) http.Handler

	// Sync configures the change relay endpoint.
	Sync SyncConfig

	// API configures API request handling.
	API APIConfig

	// Static configures static asset serving. Assets are served only when
	// Static.FS is set.
	Static StaticConfig
}

// SyncConfig configures the WebSocket change relay.
type SyncConfig struct {
	// Path is where the relay hub is mounted (default: "/_sync").
	Path string

	// Disabled turns the relay endpoint off.
	Disabled bool
}

// DefaultSyncConfig returns the default relay configuration.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{Path: "/_sync"}
}

// APIConfig configures API request handling.
type APIConfig struct {
	// MaxBodyBytes caps API request bodies (default: 1 MiB).
	MaxBodyBytes int64
}

// DefaultAPIConfig returns the default API configuration.
func DefaultAPIConfig() APIConfig {
	return APIConfig{MaxBodyBytes: 1 << 20}
}

// CacheControl selects the Cache-Control strategy for static assets.
type CacheControl int

const (
	// CacheControlNone disables caching. Useful in development.
	CacheControlNone CacheControl = iota

	// CacheControlProduction caches fingerprinted assets for a year and
	// everything else for an hour with revalidation.
	CacheControlProduction
)

// StaticConfig configures static asset serving.
type StaticConfig struct {
	// FS holds the assets. Nil disables static serving.
	FS fs.FS

	// Prefix is the URL prefix assets are served under (default: "/static").
	Prefix string

	// CacheControl selects the caching strategy (default: CacheControlNone).
	CacheControl CacheControl

	// Headers are extra response headers set on every asset response.
	Headers map[string]string
}

// DefaultStaticConfig returns the default static asset configuration.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{Prefix: "/static"}
}

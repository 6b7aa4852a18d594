package streamable

import (
	"github.com/viant/mcpdb/transport/server/auth"
	"github.com/viant/mcpdb/transport/server/base"
	"github.com/viant/mcpdb/transport/server/http/session"
	"net/http"
	"time"
)

// Options exposes configurable attributes of the handler.
// Handler reads URI, SessionLocation, the lifecycle controls, MaxEventBuffer,
// OverflowPolicy and EventStore. It does not read Store or the BFF cookie,
// CORS and auth fields: sessions are always kept in the handler's in-memory
// table, and no cookie, CORS header or auth grant is processed.
type Options struct {
	// URI of the endpoint (configurable; empty matches any path when handler is mounted on a specific route)
	URI string

	// SessionLocation defines where session id is transported (header or query param)
	SessionLocation *session.Location

	// Lifecycle controls
	ReconnectGrace  time.Duration
	IdleTTL         time.Duration
	MaxLifetime     time.Duration
	CleanupInterval time.Duration
	MaxEventBuffer  int
	OnSessionClose  func(*base.Session)
	RemovalPolicy   base.RemovalPolicy
	OverflowPolicy  base.OverflowPolicy
	// Optional custom session store (e.g., Redis-backed); not read by Handler.
	Store base.SessionStore

	// EventStore, when set, is attached to every session created at handshake
	// time so its outgoing messages persist fleet-wide instead of only in the
	// session's local in-process buffer.
	EventStore base.EventSink

	// BFF cookie-based session id (optional, disabled by default)
	CookieSession *BFFCookie
	// CORS settings for browsers
	AllowedOrigins   []string
	AllowCredentials bool

	// If true and CookieSession.Domain is empty, set cookie Domain to the request's top domain (eTLD+1).
	CookieUseTopDomain bool

	// BFF auth (server-held) grant
	AuthStore              auth.Store
	AuthCookie             *BFFAuthCookie
	AuthCookieUseTopDomain bool
	RehydrateOnHandshake   bool
	LogoutAllPath          string
}

// Option mutates Options.
type Option func(*Options)

// WithURI sets custom URI.
func WithURI(uri string) Option {
	return func(o *Options) { o.URI = uri }
}

// WithSessionLocation overrides default session location.
func WithSessionLocation(loc *session.Location) Option {
	return func(o *Options) { o.SessionLocation = loc }
}

// WithReconnectGrace sets the grace period during which a detached session is kept for reconnection.
func WithReconnectGrace(d time.Duration) Option { return func(o *Options) { o.ReconnectGrace = d } }

// WithIdleTTL sets the idle timeout for sessions.
func WithIdleTTL(d time.Duration) Option { return func(o *Options) { o.IdleTTL = d } }

// WithMaxLifetime sets the hard cap on session lifetime.
func WithMaxLifetime(d time.Duration) Option { return func(o *Options) { o.MaxLifetime = d } }

// WithCleanupInterval sets how often the cleanup sweeper runs.
func WithCleanupInterval(d time.Duration) Option { return func(o *Options) { o.CleanupInterval = d } }

// WithMaxEventBuffer sets the default event buffer size used for resumability.
func WithMaxEventBuffer(n int) Option { return func(o *Options) { o.MaxEventBuffer = n } }

// WithOnSessionClose registers a hook invoked when a session is finally closed.
func WithOnSessionClose(fn func(*base.Session)) Option {
	return func(o *Options) { o.OnSessionClose = fn }
}

// WithRemovalPolicy sets the session removal policy.
func WithRemovalPolicy(p base.RemovalPolicy) Option { return func(o *Options) { o.RemovalPolicy = p } }

// WithOverflowPolicy sets the event buffer overflow policy.
func WithOverflowPolicy(p base.OverflowPolicy) Option {
	return func(o *Options) { o.OverflowPolicy = p }
}

// WithSessionStore sets Options.Store, which Handler does not read.
func WithSessionStore(store base.SessionStore) Option { return func(o *Options) { o.Store = store } }

// WithEventStore attaches a fleet-level event sink to every session this
// handler creates at handshake time.
func WithEventStore(store base.EventSink) Option {
	return func(o *Options) { o.EventStore = store }
}

// BFFCookie defines cookie attributes used to carry the session id.
type BFFCookie struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
	MaxAge   int
}

// WithBFFCookieSession sets the cookie for a cookie-based session id (not read by Handler).
func WithBFFCookieSession(c *BFFCookie) Option { return func(o *Options) { o.CookieSession = c } }

// WithCORSAllowedOrigins sets the allowed origins for CORS (not read by Handler).
func WithCORSAllowedOrigins(origins []string) Option {
	return func(o *Options) { o.AllowedOrigins = origins }
}

// WithCORSAllowCredentials sets the credentialed-CORS flag (not read by Handler).
func WithCORSAllowCredentials(v bool) Option { return func(o *Options) { o.AllowCredentials = v } }

// WithBFFCookieUseTopDomain sets the flag for deriving the cookie Domain from the request host (not read by Handler).
func WithBFFCookieUseTopDomain(v bool) Option { return func(o *Options) { o.CookieUseTopDomain = v } }

// BFFAuthCookie defines cookie attributes for the BFF auth session (opaque grant id).
type BFFAuthCookie struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
	MaxAge   int
}

// WithAuthStore sets the store for BFF auth grants (not read by Handler).
func WithAuthStore(store auth.Store) Option { return func(o *Options) { o.AuthStore = store } }

// WithBFFAuthCookie sets the cookie carrying the BFF auth grant id (not read by Handler).
func WithBFFAuthCookie(c *BFFAuthCookie) Option { return func(o *Options) { o.AuthCookie = c } }

// WithBFFAuthCookieUseTopDomain sets the flag for deriving the auth cookie Domain (not read by Handler).
func WithBFFAuthCookieUseTopDomain(v bool) Option {
	return func(o *Options) { o.AuthCookieUseTopDomain = v }
}

// WithRehydrateOnHandshake sets Options.RehydrateOnHandshake, which Handler does not read;
// a POST without a session id starts a new session whether or not an auth cookie is present.
func WithRehydrateOnHandshake(v bool) Option { return func(o *Options) { o.RehydrateOnHandshake = v } }

// WithLogoutAllPath sets a path for revoking the BFF auth grant (not read by Handler).
func WithLogoutAllPath(path string) Option { return func(o *Options) { o.LogoutAllPath = path } }

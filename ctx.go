package custodesk

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Ctx is the per-request context handed to page and API handlers.
type Ctx struct {
	w      http.ResponseWriter
	r      *http.Request
	logger *slog.Logger

	status int
	title  string

	redirectURL  string
	redirectCode int
}

func newCtx(w http.ResponseWriter, r *http.Request, logger *slog.Logger) *Ctx {
	return &Ctx{
		w:      w,
		r:      r,
		logger: logger,
		status: http.StatusOK,
	}
}

// Request returns the underlying *http.Request.
func (c *Ctx) Request() *http.Request {
	return c.r
}

// Writer returns the underlying http.ResponseWriter.
// Prefer the handler return values; use this only for streaming responses.
func (c *Ctx) Writer() http.ResponseWriter {
	return c.w
}

// Context returns the request's context.
func (c *Ctx) Context() context.Context {
	return c.r.Context()
}

// Param returns the named route parameter (e.g. "customerID").
func (c *Ctx) Param(name string) string {
	return chi.URLParam(c.r, name)
}

// Query returns the named query parameter.
func (c *Ctx) Query(name string) string {
	return c.r.URL.Query().Get(name)
}

// Logger returns the request logger.
func (c *Ctx) Logger() *slog.Logger {
	return c.logger
}

// SetStatus sets the response status code written after the handler returns.
func (c *Ctx) SetStatus(code int) {
	c.status = code
}

// Status returns the pending response status code.
func (c *Ctx) Status() int {
	return c.status
}

// SetTitle sets the document title for rendered pages.
func (c *Ctx) SetTitle(title string) {
	c.title = title
}

// Title returns the document title.
func (c *Ctx) Title() string {
	return c.title
}

// SetCookie adds a Set-Cookie header to the response.
func (c *Ctx) SetCookie(cookie *http.Cookie) {
	http.SetCookie(c.w, cookie)
}

// Cookie returns the named request cookie, or nil if absent.
func (c *Ctx) Cookie(name string) *http.Cookie {
	cookie, err := c.r.Cookie(name)
	if err != nil {
		return nil
	}
	return cookie
}

// Redirect instructs the app to respond with a redirect instead of the
// handler's return value. Code defaults to 302 Found when zero.
func (c *Ctx) Redirect(url string, code int) {
	if code == 0 {
		code = http.StatusFound
	}
	c.redirectURL = url
	c.redirectCode = code
}

// redirectInfo reports a pending redirect, if any.
func (c *Ctx) redirectInfo() (string, int, bool) {
	return c.redirectURL, c.redirectCode, c.redirectURL != ""
}

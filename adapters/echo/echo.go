// Package hxglueecho provides Echo framework integration for the hxglue token
// issuer.
//
// Mount the token endpoint and the verification middleware onto an Echo
// instance or group:
//
//	e := echo.New()
//	iss, err := hxglueecho.Mount(e)
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	iss, err := hxglueecho.MountGroup(g)
//
// Every non-GET/HEAD/OPTIONS request behind the middleware must then carry
// the X-Csrf-Token header the page runtime attaches.
package hxglueecho

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hxglue"
	"github.com/pthm/hxglue/lib/issuer"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	key        []byte
	path       string
	store      issuer.Store
	issuerOpts []issuer.Option
}

// WithKey sets the token signing key.
// The key should be at least 32 bytes of cryptographically random data.
// If not provided, a random key is generated (suitable for development only).
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithPath sets the token endpoint path.
// Defaults to "/csrf/token".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithStore sets where issued nonces are remembered. Defaults to an
// in-memory store.
func WithStore(s issuer.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithIssuerOptions passes options through to issuer.New.
func WithIssuerOptions(opts ...issuer.Option) Option {
	return func(o *options) {
		o.issuerOpts = append(o.issuerOpts, opts...)
	}
}

// Mount creates an issuer, serves its token endpoint and protects every
// route of e.
//
//	e := echo.New()
//	iss, err := hxglueecho.Mount(e)
//
//	// With options:
//	iss, err := hxglueecho.Mount(e, hxglueecho.WithKey(key))
func Mount(e *echo.Echo, opts ...Option) (*issuer.Issuer, error) {
	iss, path, err := newIssuer(opts)
	if err != nil {
		return nil, err
	}
	e.GET(path, echo.WrapHandler(iss.TokenHandler()))
	e.Use(Middleware(iss))
	return iss, nil
}

// MountGroup is Mount for an Echo group. The token endpoint path is
// relative to the group and only the group's routes are protected.
//
//	g := e.Group("/app", authMiddleware)
//	iss, err := hxglueecho.MountGroup(g)
func MountGroup(g *echo.Group, opts ...Option) (*issuer.Issuer, error) {
	iss, path, err := newIssuer(opts)
	if err != nil {
		return nil, err
	}
	g.Use(Middleware(iss))
	g.GET(path, echo.WrapHandler(iss.TokenHandler()))
	return iss, nil
}

// Middleware rejects state-changing requests without a valid token.
func Middleware(iss *issuer.Issuer) echo.MiddlewareFunc {
	return echo.WrapMiddleware(iss.Protect)
}

func newIssuer(opts []Option) (*issuer.Issuer, string, error) {
	o := &options{path: hxglue.DefaultTokenPath}
	for _, opt := range opts {
		opt(o)
	}
	if !strings.HasPrefix(o.path, "/") {
		o.path = "/" + o.path
	}

	key := o.key
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, "", fmt.Errorf("hxglueecho: failed to generate random key: %w", err)
		}
	}

	iss, err := issuer.New(key, o.store, o.issuerOpts...)
	if err != nil {
		return nil, "", fmt.Errorf("hxglueecho: %w", err)
	}
	return iss, o.path, nil
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxglueecho.Render(c, myTemplate())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}

// RenderSplit writes main followed by flashes as a split payload for the
// "morph-split" swap style.
//
//	return hxglueecho.RenderSplit(c, row(item), hxglue.Flash{Level: hxglue.FlashSuccess, Message: "Saved"})
func RenderSplit(c echo.Context, main templ.Component, flashes ...hxglue.Flash) error {
	var sb strings.Builder
	if err := main.Render(c.Request().Context(), &sb); err != nil {
		return err
	}
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := c.Response().Write([]byte(hxglue.SplitPayload(sb.String(), hxglue.DefaultSplitMarker, flashes)))
	return err
}

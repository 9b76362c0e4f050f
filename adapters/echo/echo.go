// Package hxlookupecho provides Echo framework integration for hxlookup
// components.
//
// Mount the component routes onto an Echo instance or group:
//
//	e := echo.New()
//	reg := hxlookupecho.Mount(e, hxlookupecho.WithKey(key))
//	reg.Add(lookup)
//
// Or on a group with middleware:
//
//	g := e.Group("", authMiddleware)
//	reg := hxlookupecho.MountGroup(g)
//	reg.Add(lookup)
package hxlookupecho

import (
	"crypto/rand"
	"fmt"
	"log/slog"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hxlookup"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	key      []byte
	previous [][]byte
	log      *slog.Logger
}

// WithKey sets the props signing key for the registry.
// The key should be at least 32 bytes of cryptographically random data.
// If not provided, a random key is generated (suitable for development only).
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithPreviousKeys keeps props signed with rotated-out keys valid.
func WithPreviousKeys(keys ...[]byte) Option {
	return func(o *options) {
		o.previous = append(o.previous, keys...)
	}
}

// WithLogger sets the logger handed to the registry and its components.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// Mount creates a registry, makes it the default and mounts its handler on
// an Echo instance under hxlookup.DefaultPath.
func Mount(e *echo.Echo, opts ...Option) *hxlookup.Registry {
	reg := newRegistry(opts)
	e.Any(hxlookup.DefaultPath+"*", echo.WrapHandler(reg.Handler()))
	return reg
}

// MountGroup is Mount for an Echo group, so component requests share the
// group's middleware. The group must not add a path prefix: component URLs
// always start with hxlookup.DefaultPath.
func MountGroup(g *echo.Group, opts ...Option) *hxlookup.Registry {
	reg := newRegistry(opts)
	g.Any(hxlookup.DefaultPath+"*", echo.WrapHandler(reg.Handler()))
	return reg
}

func newRegistry(opts []Option) *hxlookup.Registry {
	o := &options{log: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	key := o.key
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("hxlookupecho: failed to generate random key: %v", err))
		}
	}

	regOpts := []hxlookup.RegistryOption{hxlookup.WithRegistryLogger(o.log)}
	if len(o.previous) > 0 {
		regOpts = append(regOpts, hxlookup.WithPreviousKeys(o.previous...))
	}
	reg := hxlookup.NewRegistry(key, regOpts...)
	hxlookup.SetDefault(reg)
	return reg
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxlookupecho.Render(c, lookup.Cell(props))
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}

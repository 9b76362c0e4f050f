package hxlookup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/a-h/templ"
)

// Hydrater is implemented by components to reconstruct live state from the
// serialized props. Called before any handler, including the default render.
type Hydrater[P any] interface {
	Hydrate(ctx context.Context, props *P) error
}

// Renderer is implemented by components to produce templ output. Called for
// GET requests and after handlers that return OK.
type Renderer[P any] interface {
	Render(ctx context.Context, props P) templ.Component
}

// Lifecycle is what a concrete component must implement to be served.
type Lifecycle[P any] interface {
	Hydrater[P]
	Renderer[P]
}

// Handler handles one named action. Props are already hydrated.
type Handler[P any] func(ctx context.Context, props P, r *http.Request) Result[P]

// actionDef holds metadata about a registered action.
type actionDef struct {
	name    string
	method  string
	handler any
}

// Component[P] is the base type embedded by concrete components.
// P is the Props type for this component and *P must implement Decodable.
//
//	type Lookup struct {
//	    *hxlookup.Component[Props]
//	}
//
//	func NewLookup() *Lookup {
//	    c := &Lookup{Component: hxlookup.New[Props]("lookup")}
//	    c.SetParent(c)
//	    c.Action("choose", c.handleChoose)
//	    return c
//	}
//
// Each component instance receives a deterministic URL prefix based on its
// name and source location (file:line).
type Component[P any] struct {
	name      string
	prefix    string
	sensitive bool
	actions   map[string]*actionDef
	encoder   *Encoder
	parent    Lifecycle[P]
	onError   func(http.ResponseWriter, *http.Request, error)
	log       *slog.Logger
}

// DefaultPath is the route prefix shared by every component. Mount
// Registry.Handler under it.
const DefaultPath = "/_c/"

// New creates a new component with the given name.
//
// Props are signed by default. Call Sensitive to encrypt them instead.
func New[P any](name string) *Component[P] {
	return newComponent[P](name, 2)
}

func newComponent[P any](name string, skip int) *Component[P] {
	prefix := DefaultPath + name + "-" + componentHash(name, skip)
	return &Component[P]{
		name:    name,
		prefix:  prefix,
		actions: make(map[string]*actionDef),
		log:     slog.Default(),
	}
}

// Sensitive marks the component as sensitive, enabling full encryption.
func (c *Component[P]) Sensitive() *Component[P] {
	c.sensitive = true
	return c
}

// Name returns the component's name.
func (c *Component[P]) Name() string {
	return c.name
}

// Prefix returns the component's URL prefix.
func (c *Component[P]) Prefix() string {
	return c.prefix
}

// IsSensitive returns whether the component uses encrypted props.
func (c *Component[P]) IsSensitive() bool {
	return c.sensitive
}

// Action registers a named action handler with default POST method.
//
//	c.Action("choose", c.handleChoose)
//	c.Action("render", c.handleRender).Method(http.MethodGet)
func (c *Component[P]) Action(name string, handler Handler[P]) *ActionBuilder {
	c.actions[name] = &actionDef{
		name:    name,
		method:  http.MethodPost,
		handler: handler,
	}
	return &ActionBuilder{action: c.actions[name]}
}

// HasAction reports whether name is registered.
func (c *Component[P]) HasAction(name string) bool {
	_, ok := c.actions[name]
	return ok
}

// SetEncoder sets the encoder for this component (called by the registry).
func (c *Component[P]) SetEncoder(enc *Encoder) {
	c.encoder = enc
}

// Encoder returns the encoder for this component.
func (c *Component[P]) Encoder() *Encoder {
	return c.encoder
}

// SetErrorHandler sets the function errors are reported to (called by the
// registry).
func (c *Component[P]) SetErrorHandler(h func(http.ResponseWriter, *http.Request, error)) {
	c.onError = h
}

// SetLogger sets the logger used for render and encoding failures.
func (c *Component[P]) SetLogger(l *slog.Logger) {
	if l != nil {
		c.log = l
	}
}

// SetParent sets the concrete component that embeds this one.
func (c *Component[P]) SetParent(parent Lifecycle[P]) {
	c.parent = parent
}

// Wire returns the HTMX attributes that invoke action with props.
func (c *Component[P]) Wire(action string, props P) templ.Attributes {
	method := http.MethodGet
	if def, ok := c.actions[action]; ok {
		method = def.method
	}
	path := c.actionPath(action)
	return WireAttrs(path, method, c.encode(props))
}

// WireVals is Wire with extra request parameters.
func (c *Component[P]) WireVals(action string, props P, vals map[string]string) templ.Attributes {
	method := http.MethodGet
	if def, ok := c.actions[action]; ok {
		method = def.method
	}
	return WireAttrsVals(c.actionPath(action), method, c.encode(props), vals)
}

// Refresh returns the attributes for the default render (GET).
func (c *Component[P]) Refresh(props P) templ.Attributes {
	return WireAttrs(c.actionPath(""), http.MethodGet, c.encode(props))
}

// Defer returns a templ component that loads after page load.
//
//	c.Defer(props, placeholder())
func (c *Component[P]) Defer(props P, placeholder templ.Component) templ.Component {
	return deferredComponent(c.buildURL("", props), placeholder)
}

func (c *Component[P]) actionPath(action string) string {
	return c.prefix + "/" + action
}

func (c *Component[P]) encode(props P) string {
	if c.encoder == nil {
		return ""
	}
	encoded, err := c.encoder.Encode(props, encodingMode(c.sensitive))
	if err != nil {
		c.log.Error("encode props", "component", c.name, "error", err)
		return ""
	}
	return encoded
}

// buildURL constructs the URL for an action with encoded props.
// Empty action string means default render (GET).
func (c *Component[P]) buildURL(action string, props P) string {
	path := c.actionPath(action)
	encoded := c.encode(props)
	if encoded == "" {
		return path
	}
	return path + "?p=" + encoded
}

// componentHash generates a deterministic hash based on component name and
// source location.
func componentHash(name string, skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	var input string
	if ok {
		input = fmt.Sprintf("%s:%d:%s", filepath.Base(file), line, name)
	} else {
		input = name
	}
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:4])
}

// deferredComponent wraps placeholder in an element that replaces itself with
// the content at url once the page has loaded.
func deferredComponent(url string, placeholder templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div hx-get="%s" hx-trigger="load" hx-swap="outerHTML">`,
			templ.EscapeString(url))
		if err != nil {
			return err
		}
		if placeholder != nil {
			if err := placeholder.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, `</div>`)
		return err
	})
}

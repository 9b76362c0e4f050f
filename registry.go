package hxlookup

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"sync"
)

// HXComponent is a component the registry can route to.
type HXComponent interface {
	HXPrefix() string
	HXServeHTTP(w http.ResponseWriter, r *http.Request)
}

// binder is implemented by *Component[P] and therefore promoted onto every
// concrete component.
type binder interface {
	SetEncoder(enc *Encoder)
	SetErrorHandler(h func(http.ResponseWriter, *http.Request, error))
	SetLogger(l *slog.Logger)
}

// Registry manages component registration and routing.
type Registry struct {
	mu         sync.RWMutex
	mux        *http.ServeMux
	encoder    *Encoder
	key        []byte
	log        *slog.Logger
	components map[string]HXComponent

	// OnError is called when a component fails to decode, hydrate or handle
	// a request. Customize this to handle errors appropriately for your
	// application.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger handed to every registered component.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(reg *Registry) { reg.log = l }
}

// WithPreviousKeys keeps props encoded under rotated-out keys decodable.
func WithPreviousKeys(keys ...[]byte) RegistryOption {
	return func(reg *Registry) {
		enc, err := NewEncoder(reg.key, keys...)
		if err != nil {
			panic(fmt.Sprintf("hxlookup: failed to create encoder: %v", err))
		}
		reg.encoder = enc
	}
}

// NewRegistry creates a new component registry with the given key.
func NewRegistry(key []byte, opts ...RegistryOption) *Registry {
	enc, err := NewEncoder(key)
	if err != nil {
		panic(fmt.Sprintf("hxlookup: failed to create encoder: %v", err))
	}

	reg := &Registry{
		mux:        http.NewServeMux(),
		encoder:    enc,
		key:        key,
		log:        slog.Default(),
		components: make(map[string]HXComponent),
	}
	for _, opt := range opts {
		opt(reg)
	}
	reg.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		reg.log.Warn("component request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		defaultErrorHandler(w, r, err)
	}
	return reg
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case IsNotFound(err):
		http.Error(w, "Not found", http.StatusNotFound)
	case IsDecryptionError(err), errors.Is(err, ErrInvalidFormat):
		http.Error(w, "Bad request", http.StatusBadRequest)
	case IsReadOnly(err):
		http.Error(w, "Forbidden: read only", http.StatusForbidden)
	case errors.Is(err, ErrMethodNotAllowed):
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// Encoder returns the registry's encoder.
func (reg *Registry) Encoder() *Encoder {
	return reg.encoder
}

// Add registers components with the registry. Panics on a prefix collision.
func (reg *Registry) Add(components ...HXComponent) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for _, comp := range components {
		prefix := comp.HXPrefix()
		if _, exists := reg.components[prefix]; exists {
			panic(fmt.Sprintf("hxlookup: prefix collision for %q", prefix))
		}
		if b, ok := comp.(binder); ok {
			b.SetEncoder(reg.encoder)
			b.SetLogger(reg.log)
			b.SetErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				reg.OnError(w, r, err)
			})
		}
		reg.components[prefix] = comp
		reg.mux.HandleFunc(prefix+"/", comp.HXServeHTTP)
	}
}

// Components returns the registered components.
func (reg *Registry) Components() []HXComponent {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]HXComponent, 0, len(reg.components))
	for _, c := range reg.components {
		out = append(out, c)
	}
	return out
}

// Handler returns the HTTP handler for component routes.
// Mount this at DefaultPath in your application.
func (reg *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Mutating methods require the header HTMX sends; a cross-site form
		// cannot set it.
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if !IsHTMX(r) {
				http.Error(w, "Forbidden: HTMX request required", http.StatusForbidden)
				return
			}
		}
		reg.mux.ServeHTTP(w, r)
	})
}

var (
	defaultMu  sync.RWMutex
	defaultReg *Registry
)

// SetDefault makes reg the registry Get and MustGet consult.
func SetDefault(reg *Registry) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultReg = reg
}

// Default returns the default registry, or nil.
func Default() *Registry {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultReg
}

// Get returns the component of type T registered with the default registry.
func Get[T any]() (T, bool) {
	var zero T
	reg := Default()
	if reg == nil {
		return zero, false
	}
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for _, c := range reg.components {
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	return zero, false
}

// MustGet is Get that panics when no default registry is set or no component
// of type T is registered.
func MustGet[T any]() T {
	if Default() == nil {
		panic("hxlookup: no default registry")
	}
	t, ok := Get[T]()
	if !ok {
		panic(fmt.Sprintf("hxlookup: component %s not found", reflect.TypeFor[T]()))
	}
	return t
}

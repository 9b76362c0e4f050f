package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pthm/hxlookup"
	"github.com/pthm/hxlookup/lib/catalog"
	"github.com/pthm/hxlookup/lib/record"
	"github.com/pthm/hxlookup/lib/schema"
	"github.com/pthm/hxlookup/lib/search"
	"github.com/pthm/hxlookup/lib/stream"
	"github.com/pthm/hxlookup/lib/widget"
	"github.com/pthm/hxlookup/provider/sqlprovider"
)

// hostEntity is the entity listed in the grid.
const hostEntity = "Contact"

//go:embed lookups.yaml
var defaultLookups []byte

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path != "" {
		return catalog.Load(path)
	}
	f, err := catalog.Parse(defaultLookups)
	if err != nil {
		return nil, err
	}
	return catalog.New(f.Lookups...), nil
}

type app struct {
	store    *sqlprovider.Store
	catalog  *catalog.Catalog
	hub      *stream.Hub
	registry *hxlookup.Registry
	lookup   *hxlookup.Lookup
	log      *slog.Logger
}

func newApp(store *sqlprovider.Store, meta schema.MetadataProvider, cat *catalog.Catalog, key []byte, log *slog.Logger) *app {
	a := &app{
		store:   store,
		catalog: cat,
		hub:     stream.NewHub(stream.WithLogger(log)),
		log:     log,
	}
	deps := store.Deps()
	deps.Metadata = meta
	a.lookup = hxlookup.NewLookup(a.configure, deps,
		hxlookup.WithLookupLogger(log),
		hxlookup.WithWidgetOptions(widget.WithNotifier(a.hub)),
	)
	a.registry = hxlookup.NewRegistry(key, hxlookup.WithRegistryLogger(log))
	a.registry.Add(a.lookup)
	hxlookup.SetDefault(a.registry)
	return a
}

// Close tears down every live widget.
func (a *app) Close() {
	a.lookup.Pool().Close()
}

// configure builds a widget for one grid cell. The contact row is loaded
// with the related record joined so the widget can show it without a
// separate lookup.
func (a *app) configure(ctx context.Context, p hxlookup.Props) (widget.Config, error) {
	def, err := a.catalog.Get(p.Lookup)
	if err != nil {
		return widget.Config{}, fmt.Errorf("%w: %w", hxlookup.ErrNotFound, err)
	}
	parents, err := a.store.LookupByID(ctx, p.Key, hostEntity, parentFields(def))
	if err != nil {
		return widget.Config{}, err
	}
	return def.Config(p.Key, p.ValueID, parents), nil
}

// parentFields lists the host row fields a definition reads: the foreign key
// and the display fields through the relationship.
func parentFields(def catalog.Definition) []string {
	relField := def.RelationshipField
	if relField == "" {
		relField = def.FieldName
	}
	rel := schema.RelationshipName(relField)
	fields := []string{def.FieldName}
	for _, f := range record.ParseFieldList(def.DisplayFields) {
		fields = append(fields, rel+"."+f)
	}
	return fields
}

func (a *app) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(a.log))
	r.Use(middleware.Recoverer)

	r.Get("/", a.handleGrid)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/events", a.hub)
	r.Route("/contacts/{id}", func(r chi.Router) {
		r.Post("/fields", a.handleSetField)
	})
	r.Handle(hxlookup.DefaultPath+"*", a.registry.Handler())
	return r
}

func (a *app) handleGrid(w http.ResponseWriter, r *http.Request) {
	fields := []string{"Name", "Email"}
	names := a.catalog.Names()
	defs := make([]catalog.Definition, 0, len(names))
	for _, name := range names {
		def, err := a.catalog.Get(name)
		if err != nil {
			continue
		}
		defs = append(defs, def)
		fields = append(fields, def.FieldName)
	}
	rows, err := a.store.Search(r.Context(), search.Query{EntityType: hostEntity, Fields: fields})
	if err != nil {
		a.log.Error("list contacts", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if err := hxlookup.Render(w, r, gridPage(a.lookup, defs, rows)); err != nil {
		a.log.Warn("render grid", "error", err)
	}
}

// handleSetField persists a lookup change on the contact row. The page calls
// it from its lookup event listeners; an empty value clears the field.
func (a *app) handleSetField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	field := r.FormValue("field")
	var value any
	if v := r.FormValue("value"); v != "" {
		value = v
	}
	if err := a.store.SetField(r.Context(), id, field, value); err != nil {
		a.log.Warn("set contact field", "id", id, "field", field, "error", err)
		status := http.StatusBadRequest
		if errors.Is(err, sqlprovider.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}

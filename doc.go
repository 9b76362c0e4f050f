// Package hxlookup serves entity lookup cells over HTMX: a search box with a
// candidate dropdown, a pill for the current selection and an inline modal
// for creating a related record.
//
// # Components
//
// A component embeds *Component[P] where P is the Props type. Props carry
// only identifiers and are encoded into every URL the component emits,
// signed by default or encrypted with Sensitive. The lifecycle is:
//   - Hydrater[P]: Hydrate(ctx, *P) reconstructs live state from props
//   - Renderer[P]: Render(ctx, P) produces the templ.Component output
//
// Actions are registered by name and dispatched by HXServeHTTP:
//
//	c.Action("choose", c.handleChoose)
//
// Handlers return a Result, a fluent builder for rendering, toasts (Flash),
// HX-Trigger events, redirects and headers.
//
// # Lookup
//
// Lookup is the component behind every cell. Each cell instance owns one
// live widget.Widget held in a Pool; the ConfigFunc turns props into the
// widget's configuration on first use:
//
//	lookup := hxlookup.NewLookup(configure, store.Deps())
//	reg := hxlookup.NewRegistry(key)
//	reg.Add(lookup)
//	mux.Handle("/_c/", reg.Handler())
//
//	// in a page
//	lookup.Cell(hxlookup.NewProps("contact-account", row.ID, row.AccountID))
//
// Selections, removals and creations reach the page as HX-Trigger events
// (lookup:selected, lookup:cleared, or the legacy lookupvalueselect and
// valueselect) and toasts are appended to the ToastContainer.
//
// # Security
//
// Mutating methods require the HX-Request: true header that HTMX sends.
// Props that fail verification are rejected with 400 by the default OnError.
package hxlookup

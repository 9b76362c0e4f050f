package hxlookup

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HXPrefix returns the URL prefix the registry mounts the component under.
func (c *Component[P]) HXPrefix() string {
	return c.prefix
}

// HXServeHTTP decodes props, hydrates them, dispatches to the action named by
// the last path segment and writes the Result. The empty action renders.
func (c *Component[P]) HXServeHTTP(w http.ResponseWriter, r *http.Request) {
	if c.parent == nil {
		c.fail(w, r, fmt.Errorf("hxlookup: component %q has no parent", c.name))
		return
	}
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, c.prefix), "/")

	var handler Handler[P]
	if name == "" {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			c.fail(w, r, ErrMethodNotAllowed)
			return
		}
	} else {
		def, ok := c.actions[name]
		if !ok {
			c.fail(w, r, fmt.Errorf("%w: action %q", ErrNotFound, name))
			return
		}
		if def.method != r.Method {
			c.fail(w, r, fmt.Errorf("%w: %s %s", ErrMethodNotAllowed, r.Method, name))
			return
		}
		handler = def.handler.(Handler[P])
	}

	props, err := c.decodeProps(r)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	ctx := r.Context()
	if err := c.parent.Hydrate(ctx, &props); err != nil {
		c.fail(w, r, fmt.Errorf("%w: %w", ErrHydrationFailed, err))
		return
	}

	res := OK(props)
	if handler != nil {
		res = handler(ctx, props, r)
	}
	c.respond(w, r, res)
}

func (c *Component[P]) decodeProps(r *http.Request) (P, error) {
	var props P
	encoded := r.FormValue("p")
	if encoded == "" {
		return props, fmt.Errorf("%w: missing props", ErrInvalidFormat)
	}
	if c.encoder == nil {
		return props, fmt.Errorf("hxlookup: component %q is not registered", c.name)
	}
	if err := c.encoder.Decode(encoded, encodingMode(c.sensitive), &props); err != nil {
		return props, wrapEncodingError(err)
	}
	return props, nil
}

// respond applies res to the response. Headers go out first, then either
// the error handler, an empty 204 or the rendered component followed by its
// toasts.
func (c *Component[P]) respond(w http.ResponseWriter, r *http.Request, res Result[P]) {
	h := w.Header()
	if trigger := BuildTriggerHeader(res.GetTriggers()); trigger != "" {
		h.Set("HX-Trigger", trigger)
	}
	if res.GetRetarget() != "" {
		h.Set("HX-Retarget", res.GetRetarget())
	}
	if res.GetReswap() != "" {
		h.Set("HX-Reswap", string(res.GetReswap()))
	}

	if err := res.GetErr(); err != nil {
		c.fail(w, r, err)
		return
	}
	status := res.GetStatus()
	if status == 0 {
		status = http.StatusOK
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	h.Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.parent.Render(r.Context(), res.GetProps()).Render(r.Context(), w); err != nil {
		c.log.Error("render component", "component", c.name, "error", err)
		return
	}
	if flashes := RenderFlashesOOB(res.GetFlashes()); flashes != "" {
		if _, err := io.WriteString(w, flashes); err != nil {
			c.log.Error("write flashes", "component", c.name, "error", err)
		}
	}
}

func (c *Component[P]) fail(w http.ResponseWriter, r *http.Request, err error) {
	if c.onError != nil {
		c.onError(w, r, err)
		return
	}
	defaultErrorHandler(w, r, err)
}

package hxlookup

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/a-h/templ"
)

// ActionBuilder configures action registration.
//
//	c.Action("choose", handler)  // POST by default
//	c.Action("render", handler).Method(http.MethodGet)
type ActionBuilder struct {
	action *actionDef
}

// Method overrides the default POST method for an action.
func (ab *ActionBuilder) Method(m string) *ActionBuilder {
	ab.action.method = m
	return ab
}

// WireAttrs builds the minimal HTMX attributes for a component action.
//
// For GET actions, returns hx-get with props encoded in the URL query string.
// For POST/PUT/DELETE/PATCH, returns hx-post (etc.) with props in hx-vals.
// Everything else (hx-target, hx-swap, hx-trigger) is added by the caller.
func WireAttrs(path, method, encoded string) templ.Attributes {
	return WireAttrsVals(path, method, encoded, nil)
}

// WireAttrsVals is WireAttrs with extra request parameters. They join the
// query string for GET and hx-vals otherwise.
func WireAttrsVals(path, method, encoded string, vals map[string]string) templ.Attributes {
	attrs := templ.Attributes{}

	if method == http.MethodGet || method == "" {
		q := url.Values{}
		for k, v := range vals {
			q.Set(k, v)
		}
		if encoded != "" {
			q.Set("p", encoded)
		}
		target := path
		if len(q) > 0 {
			target = path + "?" + q.Encode()
		}
		attrs["hx-get"] = target
		return attrs
	}

	switch method {
	case http.MethodPost:
		attrs["hx-post"] = path
	case http.MethodPut:
		attrs["hx-put"] = path
	case http.MethodPatch:
		attrs["hx-patch"] = path
	case http.MethodDelete:
		attrs["hx-delete"] = path
	}
	body := make(map[string]string, len(vals)+1)
	for k, v := range vals {
		body[k] = v
	}
	if encoded != "" {
		body["p"] = encoded
	}
	if len(body) > 0 {
		data, _ := json.Marshal(body)
		attrs["hx-vals"] = string(data)
	}
	return attrs
}

// Merge returns a copy of base with every attribute of extra added, later
// values winning.
func Merge(base templ.Attributes, extra ...templ.Attributes) templ.Attributes {
	out := make(templ.Attributes, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, e := range extra {
		for k, v := range e {
			out[k] = v
		}
	}
	return out
}

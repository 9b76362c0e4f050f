package hxlookup

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// Render writes a templ component to the HTTP response.
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsHTMX returns true if the request originated from HTMX.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// BuildTriggerHeader builds an HX-Trigger header value.
//
// Events without data produce a comma separated list of names:
// "a, b". If any event carries data the value is a JSON object keyed by
// event name, with true standing in for events that have none. A later event
// with the same name replaces an earlier one.
func BuildTriggerHeader(events []TriggerEvent) string {
	if len(events) == 0 {
		return ""
	}
	withData := false
	for _, ev := range events {
		if ev.Data != nil {
			withData = true
			break
		}
	}
	if !withData {
		names := make([]string, 0, len(events))
		for _, ev := range events {
			names = append(names, ev.Name)
		}
		return strings.Join(names, ", ")
	}

	merged := make(map[string]any, len(events))
	for _, ev := range events {
		if ev.Data != nil {
			merged[ev.Name] = ev.Data
		} else {
			merged[ev.Name] = true
		}
	}
	data, _ := json.Marshal(merged)
	return string(data)
}

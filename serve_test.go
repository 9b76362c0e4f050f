package hxlookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

type tagProps struct {
	ID    string
	Label string
}

func (p tagProps) HXEncode() map[string]any { return map[string]any{"id": p.ID} }

func (p *tagProps) HXDecode(m map[string]any) error {
	p.ID, _ = m["id"].(string)
	return nil
}

// tagComponent is a minimal component used to exercise dispatch.
type tagComponent struct {
	*Component[tagProps]
	labels map[string]string
}

func newTagComponent() *tagComponent {
	c := &tagComponent{
		Component: New[tagProps]("tag"),
		labels:    map[string]string{"t1": "Urgent"},
	}
	c.SetParent(c)
	c.Action("rename", func(_ context.Context, p tagProps, r *http.Request) Result[tagProps] {
		p.Label = r.FormValue("label")
		return OK(p).Trigger("tag:renamed", map[string]any{"id": p.ID}).Flash(FlashSuccess, "", "Renamed")
	})
	c.Action("pin", func(_ context.Context, p tagProps, _ *http.Request) Result[tagProps] {
		return OK(p).Retarget("#pinned").Reswap(SwapBeforeEnd)
	})
	c.Action("noop", func(context.Context, tagProps, *http.Request) Result[tagProps] {
		return NoContent[tagProps]()
	})
	c.Action("fail", func(_ context.Context, p tagProps, _ *http.Request) Result[tagProps] {
		return Err(p, ErrReadOnly)
	})
	c.Action("raw", func(_ context.Context, p tagProps, _ *http.Request) Result[tagProps] {
		return OK(p)
	}).Method(http.MethodGet)
	return c
}

func (c *tagComponent) Hydrate(_ context.Context, p *tagProps) error {
	label, ok := c.labels[p.ID]
	if !ok {
		return ErrNotFound
	}
	if p.Label == "" {
		p.Label = label
	}
	return nil
}

func (c *tagComponent) Render(_ context.Context, p tagProps) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<span id="tag-%s">%s</span>`, p.ID, templ.EscapeString(p.Label))
		return err
	})
}

func newTagRegistry(t *testing.T) (*Registry, *tagComponent) {
	t.Helper()
	reg := NewRegistry([]byte("test-key"))
	c := newTagComponent()
	reg.Add(c)
	return reg, c
}

func propsOf(t *testing.T, c *tagComponent, p tagProps) string {
	t.Helper()
	enc, err := c.Encoder().Encode(p, encodingMode(c.IsSensitive()))
	if err != nil {
		t.Fatal(err)
	}
	return enc
}

func TestComponentPrefix(t *testing.T) {
	a, b := newTagComponent(), newTagComponent()
	if !strings.HasPrefix(a.Prefix(), "/_c/tag-") {
		t.Errorf("Prefix() = %q", a.Prefix())
	}
	if a.Prefix() != b.Prefix() {
		t.Error("components built at the same call site should share a prefix")
	}
	if a.HXPrefix() != a.Prefix() || a.Name() != "tag" {
		t.Errorf("HXPrefix %q name %q", a.HXPrefix(), a.Name())
	}
}

func TestServeRender(t *testing.T) {
	reg, c := newTagRegistry(t)
	res, err := NewTestRequest(http.MethodGet, c.Prefix()+"/?p="+propsOf(t, c, tagProps{ID: "t1"})).ServeWith(reg.Handler())
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsOK() || !res.HTMLContains(`<span id="tag-t1">Urgent</span>`) {
		t.Errorf("status %d html %q", res.StatusCode, res.HTML)
	}
	if !res.HasHeader("Content-Type", "text/html; charset=utf-8") {
		t.Errorf("Content-Type = %q", res.Headers.Get("Content-Type"))
	}
}

func TestServeActionResult(t *testing.T) {
	reg, c := newTagRegistry(t)
	res, _ := NewTestRequest(http.MethodPost, c.Prefix()+"/rename").
		WithFormData("p", propsOf(t, c, tagProps{ID: "t1"})).
		WithFormData("label", "<b>Later</b>").
		ServeWith(reg.Handler())
	if !res.IsOK() {
		t.Fatalf("status %d: %s", res.StatusCode, res.HTML)
	}
	if !res.HTMLContains("&lt;b&gt;Later&lt;/b&gt;") {
		t.Errorf("html = %q", res.HTML)
	}
	if !res.HasEvent("tag:renamed") || res.EventData["tag:renamed"]["id"] != "t1" {
		t.Errorf("events %v", res.TriggeredEvents)
	}
	if !res.HasFlash(FlashSuccess, "Renamed") {
		t.Errorf("flashes %v", res.Flashes)
	}
}

func TestServeOutcomes(t *testing.T) {
	reg, c := newTagRegistry(t)
	good := propsOf(t, c, tagProps{ID: "t1"})
	tests := []struct {
		name   string
		method string
		path   string
		props  string
		htmx   bool
		status int
	}{
		{"retarget", http.MethodPost, "/pin", good, true, http.StatusOK},
		{"no content", http.MethodPost, "/noop", good, true, http.StatusNoContent},
		{"handler error", http.MethodPost, "/fail", good, true, http.StatusForbidden},
		{"unknown action", http.MethodPost, "/nope", good, true, http.StatusNotFound},
		{"wrong method", http.MethodGet, "/rename", good, true, http.StatusMethodNotAllowed},
		{"GET action", http.MethodGet, "/raw", good, true, http.StatusOK},
		{"missing props", http.MethodPost, "/noop", "", true, http.StatusBadRequest},
		{"tampered props", http.MethodPost, "/noop", good[:len(good)-2] + "xx", true, http.StatusBadRequest},
		{"hydrate failure", http.MethodPost, "/noop", propsOf(t, c, tagProps{ID: "zz"}), true, http.StatusNotFound},
		{"no HX-Request", http.MethodPost, "/noop", good, false, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewTestRequest(tt.method, c.Prefix()+tt.path)
			if tt.method == http.MethodGet {
				b = NewTestRequest(tt.method, c.Prefix()+tt.path+"?p="+tt.props)
			} else if tt.props != "" {
				b.WithFormData("p", tt.props)
			}
			if !tt.htmx {
				b.WithoutHTMX()
			}
			res, _ := b.ServeWith(reg.Handler())
			if res.StatusCode != tt.status {
				t.Errorf("status = %d, want %d (%s)", res.StatusCode, tt.status, res.HTML)
			}
		})
	}
}

func TestServeRetargetHeaders(t *testing.T) {
	reg, c := newTagRegistry(t)
	res, _ := NewTestRequest(http.MethodPost, c.Prefix()+"/pin").
		WithFormData("p", propsOf(t, c, tagProps{ID: "t1"})).
		ServeWith(reg.Handler())
	if !res.HasHeader("HX-Retarget", "#pinned") || !res.HasHeader("HX-Reswap", string(SwapBeforeEnd)) {
		t.Errorf("headers = %v", res.Headers)
	}
	if !res.HTMLContains("Urgent") {
		t.Errorf("body %q", res.HTML)
	}
}

func TestCustomOnError(t *testing.T) {
	reg, c := newTagRegistry(t)
	var got error
	reg.OnError = func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}
	res, _ := NewTestRequest(http.MethodPost, c.Prefix()+"/fail").
		WithFormData("p", propsOf(t, c, tagProps{ID: "t1"})).
		ServeWith(reg.Handler())
	if res.StatusCode != http.StatusTeapot || !errors.Is(got, ErrReadOnly) {
		t.Errorf("status %d err %v", res.StatusCode, got)
	}
}

func TestRegistryPrefixCollision(t *testing.T) {
	reg := NewRegistry([]byte("k"))
	reg.Add(newTagComponent())
	defer func() {
		if recover() == nil {
			t.Error("expected panic on prefix collision")
		}
	}()
	reg.Add(newTagComponent())
}

func TestRegistryKeyRotation(t *testing.T) {
	_, c := newTagRegistry(t)
	enc := propsOf(t, c, tagProps{ID: "t1"})

	rotated := NewRegistry([]byte("new-key"), WithPreviousKeys([]byte("test-key")))
	c2 := newTagComponent()
	rotated.Add(c2)
	res, _ := NewTestRequest(http.MethodGet, c2.Prefix()+"/?p="+enc).ServeWith(rotated.Handler())
	if !res.IsOK() {
		t.Errorf("rotated registry rejected old props: %d", res.StatusCode)
	}
}

func TestDefaultRegistryGet(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	SetDefault(nil)
	func() {
		defer func() {
			if r := recover(); r != "hxlookup: no default registry" {
				t.Errorf("panic = %v", r)
			}
		}()
		MustGet[*tagComponent]()
	}()

	reg, c := newTagRegistry(t)
	SetDefault(reg)
	if got := MustGet[*tagComponent](); got != c {
		t.Error("MustGet returned a different component")
	}
	if _, ok := Get[*Lookup](); ok {
		t.Error("Get found an unregistered type")
	}
}

func TestWireUsesActionMethod(t *testing.T) {
	_, c := newTagRegistry(t)
	p := tagProps{ID: "t1"}
	if _, ok := c.Wire("rename", p)["hx-post"]; !ok {
		t.Error("rename should wire hx-post")
	}
	if _, ok := c.Wire("raw", p)["hx-get"]; !ok {
		t.Error("raw should wire hx-get")
	}
	if got := c.Refresh(p)["hx-get"].(string); !strings.HasPrefix(got, c.Prefix()+"/?p=") {
		t.Errorf("Refresh hx-get = %q", got)
	}
}

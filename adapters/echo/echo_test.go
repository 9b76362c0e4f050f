package hxlookupecho

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/pthm/hxlookup"
	"github.com/pthm/hxlookup/lib/record"
	"github.com/pthm/hxlookup/lib/search"
	"github.com/pthm/hxlookup/lib/widget"
)

func newTestLookup(t *testing.T) *hxlookup.Lookup {
	t.Helper()
	rows := []record.Record{
		{"Id": "acc-1", "Name": "Acme"},
		{"Id": "acc-2", "Name": "Globex"},
	}
	deps := widget.Deps{
		Searcher: search.SearcherFunc(func(_ context.Context, q search.Query) ([]record.Record, error) {
			var out []record.Record
			for _, r := range rows {
				if strings.Contains(strings.ToLower(r["Name"].(string)), strings.ToLower(q.Text)) {
					out = append(out, r)
				}
			}
			return out, nil
		}),
		Resolver: widget.ResolverFunc(func(_ context.Context, id, _ string, _ []string) ([]record.Record, error) {
			for _, r := range rows {
				if r.ID() == id {
					return []record.Record{r}, nil
				}
			}
			return nil, nil
		}),
	}
	l := hxlookup.NewLookup(func(context.Context, hxlookup.Props) (widget.Config, error) {
		return widget.Config{EntityType: "Account", FieldName: "AccountId"}, nil
	}, deps)
	t.Cleanup(l.Pool().Close)
	return l
}

func TestMount(t *testing.T) {
	e := echo.New()
	reg := Mount(e)

	if reg == nil {
		t.Fatal("Mount returned nil registry")
	}
}

func TestMountWithKey(t *testing.T) {
	e := echo.New()
	key := make([]byte, 32)
	reg := Mount(e, WithKey(key), WithPreviousKeys([]byte("old-key")))

	if reg == nil {
		t.Fatal("Mount returned nil registry")
	}
}

func TestMountGroup(t *testing.T) {
	e := echo.New()
	g := e.Group("")
	reg := MountGroup(g)

	if reg == nil {
		t.Fatal("MountGroup returned nil registry")
	}
}

func TestMountSetsDefault(t *testing.T) {
	e := echo.New()
	reg := Mount(e)
	if hxlookup.Default() != reg {
		t.Fatal("Mount did not set the default registry")
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic from MustGet with unregistered type")
		}
		msg, ok := r.(string)
		if !ok {
			t.Fatalf("unexpected panic type: %T", r)
		}
		if !strings.Contains(msg, "not found") {
			t.Fatalf("unexpected panic: %s", msg)
		}
	}()
	hxlookup.MustGet[*testing.T]()
}

func TestCSRFProtection(t *testing.T) {
	e := echo.New()
	Mount(e)

	// POST without HX-Request header should be forbidden
	req := httptest.NewRequest(http.MethodPost, "/_c/test/action", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for POST without HX-Request, got %d", rec.Code)
	}
}

func TestGETAllowed(t *testing.T) {
	e := echo.New()
	Mount(e)

	// GET requests don't need HX-Request header
	req := httptest.NewRequest(http.MethodGet, "/_c/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code == http.StatusForbidden {
		t.Error("GET request should not require HX-Request header")
	}
}

func TestLookupThroughEcho(t *testing.T) {
	e := echo.New()
	reg := Mount(e, WithKey([]byte("echo-test-key")))
	l := newTestLookup(t)
	reg.Add(l)

	got, ok := hxlookup.Get[*hxlookup.Lookup]()
	if !ok || got != l {
		t.Fatal("lookup not registered with the default registry")
	}

	props := hxlookup.NewProps("account", "row-1", "acc-2")
	e.GET("/", func(c echo.Context) error {
		return Render(c, l.Cell(props))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("page: expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	start := strings.Index(body, `hx-get="`)
	if start < 0 {
		t.Fatalf("cell has no hx-get: %s", body)
	}
	cellURL := body[start+len(`hx-get="`):]
	cellURL = cellURL[:strings.Index(cellURL, `"`)]
	cellURL = strings.ReplaceAll(cellURL, "&amp;", "&")

	req = httptest.NewRequest(http.MethodGet, cellURL, nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cell: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Globex") {
		t.Errorf("cell should show the resolved value: %s", rec.Body.String())
	}

	u, err := url.Parse(cellURL)
	if err != nil {
		t.Fatal(err)
	}
	form := url.Values{"p": {u.Query().Get("p")}}
	req = httptest.NewRequest(http.MethodPost, l.Prefix()+"/clear", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), widget.EventCleared) {
		t.Errorf("clear should trigger %s, got %q", widget.EventCleared, rec.Header().Get("HX-Trigger"))
	}
}

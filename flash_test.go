package hxlookup

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRenderFlashesOOBEmpty(t *testing.T) {
	if got := RenderFlashesOOB(nil); got != "" {
		t.Errorf("RenderFlashesOOB(nil) = %q", got)
	}
}

func TestRenderFlashesOOB(t *testing.T) {
	got := RenderFlashesOOB([]Flash{
		{Level: FlashSuccess, Title: "Success", Message: "Record saved successfully with id: acc-9"},
		{Level: FlashError, Message: "Error saving the record"},
	})
	for _, want := range []string{
		`<div id="toasts" hx-swap-oob="beforeend">`,
		`<div class="toast toast-success" role="status" data-auto-dismiss="3000">`,
		`<strong class="toast-title">Success</strong>`,
		`<span class="toast-message">Record saved successfully with id: acc-9</span>`,
		`<div class="toast toast-error"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %s", want, got)
		}
	}
	if strings.Count(got, "toast-title") != 1 {
		t.Error("a flash without a title should not render one")
	}
}

func TestRenderFlashesOOBEscapes(t *testing.T) {
	got := RenderFlashesOOB([]Flash{{Level: `x"y`, Title: "<b>", Message: "<script>alert(1)</script>"}})
	if strings.Contains(got, "<script>") || strings.Contains(got, "<b>") {
		t.Errorf("unescaped output: %s", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("expected escaped message: %s", got)
	}
}

func TestFlashesRoundTripThroughParser(t *testing.T) {
	in := []Flash{
		{Level: FlashSuccess, Title: "Success", Message: "a & b"},
		{Level: FlashWarning, Message: "Select a record type to continue"},
	}
	got := parseFlashesFromHTML("<div>body</div>" + RenderFlashesOOB(in))
	if len(got) != len(in) {
		t.Fatalf("parsed %d flashes, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("flash %d = %+v, want %+v", i, got[i], in[i])
		}
	}
}

func TestToastContainer(t *testing.T) {
	var buf bytes.Buffer
	if err := ToastContainer().Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `id="toasts"`) {
		t.Errorf("ToastContainer = %s", buf.String())
	}
}

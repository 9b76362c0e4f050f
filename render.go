package hxlookup

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/pthm/hxlookup/lib/createflow"
	"github.com/pthm/hxlookup/lib/schema"
	"github.com/pthm/hxlookup/lib/widget"
)

// markup writes HTML and remembers the first write error.
type markup struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (m *markup) raw(s string) {
	if m.err != nil {
		return
	}
	_, m.err = io.WriteString(m.w, s)
}

func (m *markup) text(s string) {
	m.raw(templ.EscapeString(s))
}

// open writes a start tag with the merged attributes.
func (m *markup) open(tag string, attrs ...templ.Attributes) {
	m.raw("<" + tag)
	if m.err == nil {
		m.err = templ.RenderAttributes(m.ctx, m.w, Merge(nil, attrs...))
	}
	m.raw(">")
}

func (m *markup) close(tag string) {
	m.raw("</" + tag + ">")
}

func (m *markup) elem(tag, content string, attrs ...templ.Attributes) {
	m.open(tag, attrs...)
	m.text(content)
	m.close(tag)
}

func rootID(p Props) string     { return "hxl-" + p.Instance }
func dropdownID(p Props) string { return rootID(p) + "-dropdown" }
func inputID(p Props) string    { return rootID(p) + "-input" }

// swapWidget targets the whole widget.
func swapWidget(p Props) templ.Attributes {
	return templ.Attributes{"hx-target": "#" + rootID(p), "hx-swap": string(SwapOuter)}
}

// swapDropdown targets only the dropdown.
func swapDropdown(p Props) templ.Attributes {
	return templ.Attributes{"hx-target": "#" + dropdownID(p), "hx-swap": string(SwapOuter.With("focus-scroll:false"))}
}

func placeholder(p Props) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := &markup{ctx: ctx, w: w}
		m.open("div", templ.Attributes{"id": rootID(p), "class": "hxl hxl-loading", "aria-busy": "true"})
		m.close("div")
		return m.err
	})
}

func (l *Lookup) renderWidget(ctx context.Context, w io.Writer, p Props) error {
	m := &markup{ctx: ctx, w: w}
	snap, cfg := p.snap, p.cfg

	root := templ.Attributes{
		"id":       rootID(p),
		"class":    "hxl",
		"data-key": p.Key,
	}
	if snap.HostLocked {
		root["data-host-locked"] = "true"
	}
	if cfg.ReadOnly {
		root["data-readonly"] = "true"
	}
	if snap.Loading {
		root = Merge(root, l.Refresh(p), templ.Attributes{
			"hx-trigger": "load delay:500ms",
			"hx-swap":    string(SwapOuter),
		})
	}
	m.open("div", root)

	if cfg.ShowLabel {
		m.elem("label", snap.EntityLabel, templ.Attributes{"class": "hxl-label", "for": inputID(p)})
	}
	if snap.Selection.IsSet {
		l.renderPill(m, p)
	} else {
		l.renderBox(m, p)
	}
	if snap.Create.Open() {
		l.renderModal(m, p)
	}
	m.close("div")
	return m.err
}

func (l *Lookup) renderIcon(m *markup, cfg widget.Config) {
	switch {
	case cfg.IconMarkup != "":
		m.open("span", templ.Attributes{"class": "hxl-icon", "aria-hidden": "true"})
		m.raw(cfg.IconMarkup)
		m.close("span")
	case cfg.IconName != "":
		m.elem("span", "", templ.Attributes{"class": "hxl-icon", "data-icon": cfg.IconName, "aria-hidden": "true"})
	}
}

func (l *Lookup) renderPill(m *markup, p Props) {
	sel := p.snap.Selection
	m.open("div", templ.Attributes{"class": "hxl-pill", "data-id": sel.ID})
	l.renderIcon(m, p.cfg)
	m.elem("a", sel.Label, templ.Attributes{"class": "hxl-pill-label", "href": sel.LinkTarget, "title": sel.Label})
	if !p.cfg.ReadOnly {
		m.elem("button", "×", l.Wire("clear", p), templ.Attributes{
			"type":       "button",
			"class":      "hxl-remove",
			"aria-label": "Remove",
		})
	}
	m.close("div")
}

func (l *Lookup) renderBox(m *markup, p Props) {
	cfg, snap := p.cfg, p.snap
	m.open("div", templ.Attributes{"class": "hxl-box"})
	l.renderIcon(m, cfg)

	input := templ.Attributes{
		"id":            inputID(p),
		"type":          "search",
		"name":          "q",
		"class":         "hxl-input",
		"placeholder":   cfg.Placeholder,
		"value":         snap.Query,
		"autocomplete":  "off",
		"role":          "combobox",
		"aria-expanded": fmt.Sprint(snap.Open),
		"aria-controls": dropdownID(p),
	}
	if cfg.ReadOnly {
		input["disabled"] = true
		m.open("input", input)
		m.close("div")
		return
	}
	m.open("input", input, l.Wire("search", p), swapDropdown(p), templ.Attributes{
		"hx-trigger": "input changed delay:200ms, search",
		"hx-sync":    "this:replace",
	})
	m.elem("span", "", l.Wire("focus", p), swapDropdown(p), templ.Attributes{
		"hidden":     true,
		"hx-trigger": "focusin from:closest .hxl-box",
		"hx-sync":    "#" + inputID(p) + ":replace",
	})
	m.elem("span", "", l.Wire("blur", p), swapDropdown(p), templ.Attributes{
		"hidden":     true,
		"hx-trigger": "focusout from:closest .hxl-box",
	})
	l.dropdown(m, p)
	m.close("div")
}

func (l *Lookup) renderDropdown(ctx context.Context, w io.Writer, p Props) error {
	m := &markup{ctx: ctx, w: w}
	l.dropdown(m, p)
	return m.err
}

func (l *Lookup) dropdown(m *markup, p Props) {
	snap, cfg := p.snap, p.cfg
	attrs := templ.Attributes{"id": dropdownID(p), "class": "hxl-dropdown"}
	if !snap.Open {
		attrs["hidden"] = true
		m.open("div", attrs)
		m.close("div")
		return
	}
	m.open("div", attrs)
	if snap.Searching && len(snap.Candidates) == 0 {
		m.elem("div", "Searching…", templ.Attributes{"class": "hxl-searching", "aria-busy": "true"})
	}
	if len(snap.Candidates) > 0 {
		m.open("ul", templ.Attributes{"class": "hxl-options", "role": "listbox"})
		for _, c := range snap.Candidates {
			m.open("li", l.WireVals("choose", p, map[string]string{"id": c.ID}), templ.Attributes{
				"class":      "hxl-option",
				"role":       "option",
				"data-id":    c.ID,
				"hx-trigger": "mousedown, keydown[key=='Enter']",
				"tabindex":   "-1",
			})
			l.renderIcon(m, cfg)
			m.elem("span", c.Label, templ.Attributes{"class": "hxl-option-label"})
			m.close("li")
		}
		m.close("ul")
	} else if !snap.Searching && snap.Notice == "" {
		m.elem("div", "No results", templ.Attributes{"class": "hxl-empty"})
	}
	if snap.Notice != "" {
		m.elem("p", "Results could not be loaded. Try again.", templ.Attributes{"class": "hxl-notice", "role": "alert"})
	}
	if cfg.CreateEnabled {
		m.elem("button", "New "+snap.EntityLabel, l.Wire("create", p), templ.Attributes{
			"type":  "button",
			"class": "hxl-new",
		})
	}
	m.close("div")
}

func (l *Lookup) renderModal(m *markup, p Props) {
	view := p.snap.Create
	titleID := rootID(p) + "-modal-title"
	m.open("div", templ.Attributes{
		"class":           "hxl-modal",
		"role":            "dialog",
		"aria-modal":      "true",
		"aria-labelledby": titleID,
	})
	m.elem("h2", "New "+p.snap.EntityLabel, templ.Attributes{"id": titleID})

	if view.State == createflow.ChoosingRecordType {
		l.renderChooser(m, p)
	} else {
		l.renderForm(m, p)
	}
	m.close("div")
}

func (l *Lookup) renderChooser(m *markup, p Props) {
	view := p.snap.Create
	m.open("form", l.Wire("continue", p), swapWidget(p), templ.Attributes{"class": "hxl-chooser"})
	m.open("fieldset")
	m.elem("legend", "Select a record type")
	for _, opt := range view.Options {
		id := rootID(p) + "-rt-" + opt.ID
		m.open("div", templ.Attributes{"class": "hxl-radio"})
		m.open("input", templ.Attributes{
			"type":    "radio",
			"id":      id,
			"name":    "recordType",
			"value":   opt.ID,
			"checked": opt.ID == view.RecordTypeID,
		})
		m.elem("label", opt.Name, templ.Attributes{"for": id})
		m.close("div")
	}
	m.close("fieldset")
	m.open("div", templ.Attributes{"class": "hxl-actions"})
	m.elem("button", "Cancel", l.Wire("cancel", p), swapWidget(p), templ.Attributes{"type": "button"})
	m.elem("button", "Next", templ.Attributes{"type": "submit", "class": "hxl-primary"})
	m.close("div")
	m.close("form")
}

func inputType(f schema.Field) string {
	switch f.Type {
	case "email", "date", "number", "url":
		return f.Type
	case "integer", "double", "currency":
		return "number"
	case "phone":
		return "tel"
	case "date-time", "datetime":
		return "datetime-local"
	default:
		return "text"
	}
}

func (l *Lookup) renderForm(m *markup, p Props) {
	view := p.snap.Create
	submitting := view.State == createflow.Submitting && !view.Failed

	m.open("form", l.Wire("submit", p), swapWidget(p), templ.Attributes{
		"class":     "hxl-form",
		"aria-busy": fmt.Sprint(submitting),
	})
	if view.Stencil {
		m.elem("div", "", l.Refresh(p), swapWidget(p), templ.Attributes{
			"class":       "hxl-stencil",
			"aria-hidden": "true",
			"hx-trigger":  "load delay:1s",
		})
	}
	for _, f := range view.FormFields {
		id := rootID(p) + "-f-" + f.Name
		m.open("div", templ.Attributes{"class": "hxl-field"})
		lbl := f.Label
		if lbl == "" {
			lbl = f.Name
		}
		if f.Required {
			lbl += " *"
		}
		m.elem("label", lbl, templ.Attributes{"for": id})
		m.open("input", templ.Attributes{
			"id":       id,
			"name":     f.Name,
			"type":     inputType(f),
			"value":    view.Values[f.Name],
			"required": f.Required,
		})
		m.close("div")
	}
	if view.Failed {
		m.elem("p", "Error saving the record", templ.Attributes{"class": "hxl-form-error", "role": "alert"})
	}
	m.open("div", templ.Attributes{"class": "hxl-actions"})
	if view.Failed {
		m.elem("button", "Dismiss", l.Wire("dismiss", p), swapWidget(p), templ.Attributes{"type": "button"})
		m.elem("button", "Retry", templ.Attributes{"type": "submit", "class": "hxl-primary"})
	} else {
		m.elem("button", "Cancel", l.Wire("cancel", p), swapWidget(p), templ.Attributes{
			"type":     "button",
			"disabled": submitting,
		})
		m.elem("button", "Save", templ.Attributes{
			"type":     "submit",
			"class":    "hxl-primary",
			"disabled": submitting,
		})
	}
	m.close("div")
	m.close("form")
}

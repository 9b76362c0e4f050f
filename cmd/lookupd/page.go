package main

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/pthm/hxlookup"
	"github.com/pthm/hxlookup/lib/catalog"
	"github.com/pthm/hxlookup/lib/record"
)

const htmxScript = `<script src="https://unpkg.com/htmx.org@2.0.4"></script>`

// hostScript persists lookup changes on the contact row, locks a row while
// its create form is open and prints the event stream.
const hostScript = `<script>
(function () {
  function save(evt, value) {
    var cell = evt.target.closest("[data-field]");
    var row = evt.target.closest("[data-row]");
    if (!cell || !row) return;
    var body = new URLSearchParams({field: cell.dataset.field, value: value || ""});
    fetch("/contacts/" + encodeURIComponent(row.dataset.row) + "/fields", {method: "POST", body: body});
  }
  document.body.addEventListener("lookup:selected", function (e) { save(e, e.detail.selectedId); });
  document.body.addEventListener("lookup:cleared", function (e) { save(e, ""); });
  document.body.addEventListener("lookupvalueselect", function (e) { save(e, e.detail.selectedId); });
  document.body.addEventListener("valueselect", function (e) { save(e, e.detail.selectedId); });
  function lock(on) {
    return function (e) {
      var row = document.querySelector('[data-row="' + CSS.escape(e.detail.key) + '"]');
      if (row) row.classList.toggle("locked", on);
    };
  }
  document.body.addEventListener("lookup:lock", lock(true));
  document.body.addEventListener("lookup:unlock", lock(false));
  document.body.addEventListener("htmx:oobAfterSwap", function () {
    document.querySelectorAll("[data-auto-dismiss]").forEach(function (el) {
      var ms = parseInt(el.dataset.autoDismiss, 10);
      el.removeAttribute("data-auto-dismiss");
      setTimeout(function () { el.remove(); }, ms);
    });
  });
  var log = document.getElementById("events");
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/events");
  ws.onmessage = function (m) {
    var li = document.createElement("li");
    li.textContent = m.data;
    log.prepend(li);
  };
})();
</script>`

// gridPage renders the contact grid with one lookup column per definition.
func gridPage(lookup *hxlookup.Lookup, defs []catalog.Definition, rows []record.Record) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>Contacts</title>%s</head><body>`, htmxScript)
		p.printf(`<h1>Contacts</h1><table class="grid"><thead><tr><th>Name</th><th>Email</th>`)
		for _, def := range defs {
			p.printf(`<th>%s</th>`, templ.EscapeString(columnTitle(def)))
		}
		p.printf(`</tr></thead><tbody>`)
		for _, row := range rows {
			p.printf(`<tr data-row="%s"><td>%s</td><td>%s</td>`,
				templ.EscapeString(row.ID()),
				templ.EscapeString(str(row["Name"])),
				templ.EscapeString(str(row["Email"])))
			for _, def := range defs {
				p.printf(`<td data-field="%s">`, templ.EscapeString(def.FieldName))
				if p.err == nil {
					props := hxlookup.NewProps(def.Name, row.ID(), str(row[def.FieldName]))
					p.err = lookup.Cell(props).Render(ctx, w)
				}
				p.printf(`</td>`)
			}
			p.printf(`</tr>`)
		}
		p.printf(`</tbody></table><h2>Events</h2><ul id="events"></ul>`)
		if p.err == nil {
			p.err = hxlookup.ToastContainer().Render(ctx, w)
		}
		p.printf(`%s</body></html>`, hostScript)
		return p.err
	})
}

func columnTitle(def catalog.Definition) string {
	if def.Label != "" {
		return def.Label
	}
	return def.Name
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// printer stops writing after the first error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

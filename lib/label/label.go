// Package label turns a record and a display template into the text shown for
// a candidate or the current selection.
package label

import (
	"strings"

	"github.com/pthm/hxlookup/lib/record"
)

// Formatter holds a display template and the ordered field paths substituted
// into it.
type Formatter struct {
	Template string
	Fields   []string
}

// New builds a Formatter from a comma separated field list. An empty format
// falls back to the first display field.
func New(displayFields, displayFormat string) Formatter {
	fields := record.ParseFieldList(displayFields)
	if displayFormat == "" && len(fields) > 0 {
		displayFormat = fields[0]
	}
	return Formatter{Template: displayFormat, Fields: fields}
}

// Format renders rec through the formatter.
func (f Formatter) Format(rec record.Record) string {
	return Format(f.Template, f.Fields, rec)
}

// Format substitutes each field path token in template with its resolved
// value, one path at a time in the given order.
//
// The substitution is textual: the first occurrence of the path string in the
// partially substituted label is replaced. A path that also appears inside an
// earlier value, or inside a longer path, is replaced there instead. Existing
// hosts rely on this output, so it is kept as is.
func Format(template string, fields []string, rec record.Record) string {
	out := template
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, _ := record.ParsePath(field).Resolve(rec)
		out = strings.Replace(out, field, record.Stringify(v), 1)
	}
	return out
}

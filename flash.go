package hxlookup

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Flash levels for toast notifications.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// Flash is a one-time notification message.
type Flash struct {
	Level   string
	Title   string
	Message string
}

// RenderFlashesOOB renders flashes as an out-of-band swap appending to the
// #toasts container. The data-auto-dismiss delay is in milliseconds.
func RenderFlashesOOB(flashes []Flash) string {
	if len(flashes) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(`<div id="toasts" hx-swap-oob="beforeend">`)

	for _, f := range flashes {
		sb.WriteString(`<div class="toast toast-`)
		sb.WriteString(templ.EscapeString(f.Level))
		sb.WriteString(`" role="status" data-auto-dismiss="3000">`)
		if f.Title != "" {
			sb.WriteString(`<strong class="toast-title">`)
			sb.WriteString(templ.EscapeString(f.Title))
			sb.WriteString(`</strong>`)
		}
		sb.WriteString(`<span class="toast-message">`)
		sb.WriteString(templ.EscapeString(f.Message))
		sb.WriteString(`</span></div>`)
	}

	sb.WriteString(`</div>`)
	return sb.String()
}

// ToastContainer returns the container flashes are appended to. Place it
// once in the page layout.
func ToastContainer() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div id="toasts" class="toast-container" aria-live="polite"></div>`)
		return err
	})
}

// Package templates renders the HTML pages of the roll-up UI as templ components.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// htmlWriter collects the first write error so components can write freely.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

// text writes s HTML-escaped.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) component(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(` | Rollup</title><style>`)
		h.raw(stylesheet)
		h.raw(`</style></head><body><header><a href="/">Rollup</a></header><main>`)
		h.component(ctx, body)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

const stylesheet = `body{font-family:system-ui,sans-serif;margin:0;background:#f7f7f8;color:#1f2328}
header{background:#1f2937;padding:.75rem 1.5rem}header a{color:#fff;font-weight:600;text-decoration:none}
main{max-width:64rem;margin:1.5rem auto;padding:0 1rem}
section{background:#fff;border:1px solid #e5e7eb;border-radius:.5rem;padding:1rem 1.25rem;margin-bottom:1rem}
table{border-collapse:collapse;width:100%;font-size:.9rem}th,td{border-bottom:1px solid #e5e7eb;padding:.35rem .5rem;text-align:left}
td.num{text-align:right;font-variant-numeric:tabular-nums}
.alert{border-radius:.5rem;padding:.75rem 1rem;margin-bottom:1rem}
.alert-error{background:#fef2f2;border:1px solid #fecaca}.alert-warn{background:#fffbeb;border:1px solid #fde68a}
.muted{color:#6b7280;font-size:.85rem}label{display:block;margin:.5rem 0 .25rem}
button{background:#2563eb;color:#fff;border:0;border-radius:.375rem;padding:.5rem 1rem;cursor:pointer}`

// ErrorAlert renders a user-facing error message with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="alert alert-error" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(`<div>`)
			h.text(action)
			h.raw(`</div>`)
		}
		if code != "" {
			h.raw(`<div class="muted">Code: `)
			h.text(code)
			h.raw(`</div>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}

// ErrorPage is a full page showing one error.
func ErrorPage(status int, message, action, code string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.component(ctx, ErrorAlert(message, action, code))
		h.raw(`<p><a href="/">Start over</a></p>`)
		return h.err
	})
	return Layout("Error "+strconv.Itoa(status), body)
}

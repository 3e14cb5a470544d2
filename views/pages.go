// Package views renders the HTML pages around the editor API.
package views

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
)

func layout(p Page, title string, body func(w *strings.Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\">")
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		if p.CSRFToken != "" {
			fmt.Fprintf(&b, `<meta name="csrf-token" content="%s">`, html.EscapeString(p.CSRFToken))
		}
		fmt.Fprintf(&b, "<title>%s</title>", html.EscapeString(title))
		b.WriteString(`<link rel="icon" href="/favicon.svg"><link rel="stylesheet" href="/public/studio.css">`)
		b.WriteString("</head><body>")
		fmt.Fprintf(&b, `<header><a href="/">%s</a></header><main>`, html.EscapeString(p.Name))
		body(&b)
		b.WriteString(`</main><script src="/public/studio.js" defer></script></body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// Index lists the saved canvases, most recent first.
func Index(p Page, sessions []SessionItem) templ.Component {
	return layout(p, p.Name, func(b *strings.Builder) {
		b.WriteString(`<section id="editor" data-api="/api"></section>`)
		b.WriteString(`<section id="sessions"><h2>Saved canvases</h2>`)
		if len(sessions) == 0 {
			b.WriteString(`<p class="empty">Nothing saved yet.</p></section>`)
			return
		}
		b.WriteString("<ul>")
		now := time.Now()
		for _, s := range sessions {
			id := html.EscapeString(s.ID)
			fmt.Fprintf(b, `<li data-session-id="%s">`, id)
			if s.Thumbnail != "" {
				fmt.Fprintf(b, `<img src="%s" alt="" width="150">`, html.EscapeString(s.Thumbnail))
			}
			fmt.Fprintf(b, `<span class="name">%s</span>`, html.EscapeString(s.Name))
			if !s.UpdatedAt.IsZero() {
				fmt.Fprintf(b, `<time datetime="%s">%s</time>`,
					s.UpdatedAt.Format(time.RFC3339), humanize.RelTime(s.UpdatedAt, now, "ago", "from now"))
			}
			fmt.Fprintf(b, `<button data-open="%s">Open</button><button data-delete="%s">Delete</button></li>`, id, id)
		}
		b.WriteString("</ul></section>")
	})
}

// NotFound is the 404 page.
func NotFound(p Page) templ.Component {
	return layout(p, "Not found", func(b *strings.Builder) {
		b.WriteString(`<h1>Page not found</h1><p><a href="/">Back to the studio</a></p>`)
	})
}

// ServerError is the 500 page.
func ServerError(p Page) templ.Component {
	return layout(p, "Something went wrong", func(b *strings.Builder) {
		b.WriteString(`<h1>Something went wrong</h1><p>Please try again in a moment.</p>`)
	})
}

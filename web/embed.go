// Package web embeds the HTML templates and static assets served by the
// kakeibo web server.
package web

import "embed"

// TemplatesFS holds the page templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds stylesheets and other assets served under /static/.
//
//go:embed static/*
var StaticFS embed.FS

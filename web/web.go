// Package web embeds the viewer page and fragment templates.
package web

import "embed"

// FS holds templates/*.html and templates/fragments/*.html.
//
//go:embed templates
var FS embed.FS

// Package web provides the embedded stylesheets of the public site and the
// admin back-office, served at /static/.
package web

import "embed"

// StaticFS embeds the web/static/ directory tree.
//
//go:embed all:static
var StaticFS embed.FS

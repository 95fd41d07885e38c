// Package web holds the static page of the local editor UI.
package web

import _ "embed"

// IndexHTML is the single-page editor
//
//go:embed index.html
var IndexHTML []byte

// Package web holds the embedded playground assets served at the root URL.
package web

import "embed"

// Assets is the playground bundle.
//
//go:embed all:dist
var Assets embed.FS

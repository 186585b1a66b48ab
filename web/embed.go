// Package web embeds the console templates and static assets into the binary.
package web

import "embed"

// Templates embeds layouts, partials and pages.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static embeds CSS and scripts served under /static.
//
//go:embed static/**/*
var Static embed.FS

// Package templates holds the admin screens and their static assets.
package templates

import "embed"

//go:embed *.html pages/*.html partials/*.html static/*
var FS embed.FS

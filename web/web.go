// Package web holds the embedded presentation shell served at the site root
package web

import (
	_ "embed"
)

//go:embed index.html
var indexHTML []byte

// IndexHTML returns the shell page
func IndexHTML() []byte {
	return indexHTML
}

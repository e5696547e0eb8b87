// Package ui ships the browser client. It only talks to the relay over
// the websocket endpoint and never touches server state.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed public
var publicFS embed.FS

// Handler serves the static client from the embedded public directory.
func Handler() http.Handler {
	sub, err := fs.Sub(publicFS, "public")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

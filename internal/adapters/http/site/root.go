// Package site serves the embedded anchor dashboard.
package site

import (
	"context"
	"net/http"
)

// Register attaches the embedded dashboard to mux at the root. Paths not
// claimed by other routes fall through to the embedded files.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /", http.FileServer(FS()))
}

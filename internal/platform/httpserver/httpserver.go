// Package httpserver builds the API's http.Server.
package httpserver

import (
	"net/http"
	"time"
)

// New wraps handler in a server bound to addr. Header reads and idle
// keep-alives get hard timeouts; body reads do not, since document upload
// requests may legitimately take a while.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

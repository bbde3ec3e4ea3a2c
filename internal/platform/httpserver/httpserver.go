package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with defaults suited to a long polling and
// streaming workload: generous write timeout, bounded header reads.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

package httpserver

import (
	"net/http"

	"civicledger/internal/platform/config"
)

// New builds the HTTP server. Write timeouts must cover a ledger write, which
// waits for a mined receipt.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Package http arranca y apaga el servidor del API.
package http

import (
	"context"
	"net/http"
	"time"
)

// Server envuelve http.Server con timeouts razonables para un API.
type Server struct {
	srv *http.Server
}

// NewServer crea el servidor sobre un handler ya armado.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}}
}

// Start bloquea hasta que el servidor se apague o falle.
func (s *Server) Start() error {
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown apaga con gracia, drenando requests en vuelo.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

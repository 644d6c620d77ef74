package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// Listener serves a Server on a TCP address.
type Listener struct {
	server     *Server
	addr       string
	httpServer *http.Server
	ln         net.Listener
}

// NewListener binds s to addr, e.g. "127.0.0.1:8077". Call Start to listen.
func NewListener(s *Server, addr string) *Listener {
	return &Listener{server: s, addr: addr}
}

// Start begins serving in a goroutine. It returns once the socket is bound.
func (l *Listener) Start() error {
	l.httpServer = &http.Server{
		Addr:              l.addr,
		Handler:           l.server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	l.ln = ln
	l.server.logger.Printf("server_listening addr=%s", ln.Addr())

	go func() {
		if err := l.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.server.logger.Printf("server_stopped error=%q", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (l *Listener) Addr() string {
	if l.ln != nil {
		return l.ln.Addr().String()
	}
	return l.addr
}

// Shutdown gracefully stops the HTTP server.
func (l *Listener) Shutdown(ctx context.Context) error {
	if l.httpServer == nil {
		return nil
	}
	return l.httpServer.Shutdown(ctx)
}

package http

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/TeninChristopher/SAM/internal/platform/logger"
)

type Server struct {
	httpServer      *nethttp.Server
	log             logger.Logger
	port            string
	timeoutGraceful time.Duration
}

func NewServer(
	log logger.Logger,
	port string,
	readTimeout time.Duration,
	writeTimeout time.Duration,
	idleTimeout time.Duration,
	timeoutGraceful time.Duration,
	handler nethttp.Handler,
) *Server {
	return &Server{
		httpServer: &nethttp.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
		},
		log:             log,
		port:            port,
		timeoutGraceful: timeoutGraceful,
	}
}

func (s *Server) Start() error {
	s.log.Infof("HTTP server is starting on port %s", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed to serve: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP server is stopping gracefully")

	if s.timeoutGraceful > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeoutGraceful)
		defer cancel()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Warn("graceful shutdown timed out, forcing stop")
		_ = s.httpServer.Close()
		return err
	}
	s.log.Info("HTTP server stopped gracefully")
	return nil
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Handroo/elasticsearch-oai/pkg/bulk"
	"github.com/Handroo/elasticsearch-oai/pkg/settings"
)

// Server exposes the ingest endpoints over HTTP. It is a thin shell
// around a bulk writer; every mutation accepted here goes through the
// same batching and backpressure as the streaming path.
type Server struct {
	cfg    settings.Server
	writer *bulk.Writer
	log    *zap.Logger
	engine *gin.Engine
}

// NewServer builds the server and registers its routes.
func NewServer(cfg settings.Server, writer *bulk.Writer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		cfg:    cfg,
		writer: writer,
		log:    log,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	s.engine = engine
	s.registerRoutes()
	return s
}

// Engine returns the underlying router.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("ingest api listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "failed to shut down server")
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	}
}

package api

import (
	"github.com/Handroo/elasticsearch-oai/pkg/common/http/handler"
)

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")
	{
		v1.POST("/documents", handler.Wrap(s.upsertDocument))
		v1.DELETE("/documents/:id", s.deleteDocument)
		v1.POST("/flush", s.flush)
		v1.GET("/stats", s.stats)
	}
}

package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Handroo/elasticsearch-oai/pkg/bulk"
	"github.com/Handroo/elasticsearch-oai/pkg/common/http/response"
)

// UpsertDocumentRequest is the body of POST /v1/documents
type UpsertDocumentRequest struct {
	Identifier string          `json:"identifier" validate:"required"`
	Doc        json.RawMessage `json:"doc" validate:"required"`
}

// WriteResult reports the open batch after a mutation was accepted
type WriteResult struct {
	Identifier string `json:"identifier"`
	Pending    int    `json:"pending"`
}

func (s *Server) upsertDocument(ctx context.Context, req *UpsertDocumentRequest) (WriteResult, error) {
	m := bulk.Mutation{
		ID:      req.Identifier,
		Kind:    bulk.KindUpsert,
		Payload: req.Doc,
	}
	if err := s.writer.Write(ctx, m); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{
		Identifier: req.Identifier,
		Pending:    s.writer.Stats().Pending,
	}, nil
}

func (s *Server) deleteDocument(c *gin.Context) {
	id := c.Param("id")
	m := bulk.Mutation{ID: id, Kind: bulk.KindDelete}
	if err := s.writer.Write(c.Request.Context(), m); err != nil {
		response.ErrorResponse(c, response.CodeInternalServer, err)
		return
	}
	response.SuccessResponse(c, response.CodeSuccess, WriteResult{
		Identifier: id,
		Pending:    s.writer.Stats().Pending,
	})
}

func (s *Server) flush(c *gin.Context) {
	if err := s.writer.Flush(c.Request.Context()); err != nil {
		if errors.Is(err, bulk.ErrTooManyStalls) {
			response.ErrorResponse(c, response.CodeUnavailable, err)
			return
		}
		response.ErrorResponse(c, response.CodeInternalServer, err)
		return
	}
	response.SuccessResponse(c, response.CodeSuccess, s.writer.Stats())
}

func (s *Server) stats(c *gin.Context) {
	response.SuccessResponse(c, response.CodeSuccess, s.writer.Stats())
}

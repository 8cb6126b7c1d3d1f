package request

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Handroo/elasticsearch-oai/pkg/common/http/validation"
)

// ParseRequest binds the JSON body into T and validates it
func ParseRequest[T any](c *gin.Context) (*T, error) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}

	if ok, msg := validation.IsRequestValid(req); !ok {
		return nil, errors.New(msg)
	}

	return &req, nil
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/flicky/go-marketplace-api/internal/apperr"
)

// respondError maps the error taxonomy to a status code and surfaces the
// displayable message; unclassified errors come out as a plain 500.
func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.MessageOf(err)})
}

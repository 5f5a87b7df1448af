package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/railsim-backend-go/pkg/response"
)

// parseID reads the :id path parameter, answering 400 itself when invalid.
func parseID(c *gin.Context, entity string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "Invalid "+entity+" ID", err)
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body, answering 400 itself on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// bindQuery decodes filter query parameters, answering 400 itself on failure.
func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return false
	}
	return true
}

func deleted(c *gin.Context, id int64) {
	response.Success(c, gin.H{"id": id, "deleted": true})
}

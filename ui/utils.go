package ui

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"wastedash/domain/core"
	"wastedash/internal/errors"
	"wastedash/internal/pipeline"
	"wastedash/ui/middleware"
)

// parseSelection reads the repeatable category and year parameters and the
// optional metric. Comma separated values are accepted too.
func parseSelection(c *gin.Context) (pipeline.Selection, error) {
	var sel pipeline.Selection
	sel.Categories = splitValues(c.QueryArray("category"))

	for _, raw := range splitValues(c.QueryArray("year")) {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return pipeline.Selection{}, errors.InvalidInput(fmt.Sprintf("year %q is not a number", raw))
		}
		sel.Years = append(sel.Years, year)
	}

	if metric := strings.TrimSpace(c.Query("metric")); metric != "" {
		sel.Metric = &metric
	}
	return sel, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// respondError writes err with the status its code maps to. Column format
// failures also name the offending column.
func (s *Server) respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)
	if status == http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	body := gin.H{
		"error":      err.Error(),
		"code":       code,
		"request_id": middleware.GetRequestID(c),
	}
	if column, ok := core.OffendingColumn(err); ok {
		body["column"] = column
	}
	c.AbortWithStatusJSON(status, body)
}

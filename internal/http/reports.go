package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/formdesk/internal/model"
	"github.com/jmehdipour/formdesk/internal/repository"
	echo "github.com/labstack/echo/v4"
)

func listRunsHandler(chRepo repository.CHRunsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		var formID int64
		if v := c.QueryParam("form_id"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				formID = n
			}
		}

		var outcome model.RunOutcome
		if raw := strings.TrimSpace(c.QueryParam("outcome")); raw != "" {
			tmp := model.RunOutcome(raw)
			if tmp.Valid() {
				outcome = tmp
			}
		}

		runs, err := chRepo.List(c.Request().Context(), formID, outcome, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(runs),
			"results": runs,
		})
	}
}

package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmehdipour/formdesk/internal/logger"
	"github.com/jmehdipour/formdesk/internal/model"
	"github.com/jmehdipour/formdesk/internal/repository"
	"github.com/jmehdipour/formdesk/internal/service/intake"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Intake is the part of intake.Service the handlers use.
type Intake interface {
	Accept(ctx context.Context, formID int64, in intake.Input) (model.Submission, []intake.FeedResult, error)
	Enqueue(ctx context.Context, formID int64, in intake.Input) (string, error)
}

type submitReq struct {
	Fields    map[string]any `json:"fields" validate:"required,min=1"`
	SourceURL string         `json:"source_url" validate:"omitempty,url"`
	CreatedAt *time.Time     `json:"created_at"`
}

func submitHandler(svc Intake) echo.HandlerFunc {
	return func(c echo.Context) error {
		formID, err := strconv.ParseInt(c.Param("form_id"), 10, 64)
		if err != nil || formID <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid form id"})
		}

		var req submitReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		// numbers and booleans are accepted as field values, objects are not
		fields := make(map[string]string, len(req.Fields))
		for id, raw := range req.Fields {
			v, err := cast.ToStringE(raw)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "field " + id + " is not a scalar"})
			}
			fields[id] = v
		}

		in := intake.Input{Fields: fields, SourceURL: req.SourceURL}
		if req.CreatedAt != nil {
			in.CreatedAt = *req.CreatedAt
		}

		ctx := c.Request().Context()

		if cast.ToBool(strings.TrimSpace(c.QueryParam("async"))) {
			id, err := svc.Enqueue(ctx, formID, in)
			if err != nil {
				return intakeError(c, formID, err)
			}
			return c.JSON(http.StatusAccepted, map[string]any{
				"enqueued": true,
				"id":       id,
				"form_id":  formID,
			})
		}

		sub, results, err := svc.Accept(ctx, formID, in)
		if err != nil {
			return intakeError(c, formID, err)
		}

		return c.JSON(http.StatusOK, map[string]any{
			"id":      sub.ID,
			"form_id": formID,
			"results": results,
		})
	}
}

func intakeError(c echo.Context, formID int64, err error) error {
	if errors.Is(err, intake.ErrFormNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "form not found"})
	}

	logger.Log.Error("intake failed", zap.Int64("form_id", formID), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
}

func getSubmissionHandler(subs repository.SubmissionsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := strings.TrimSpace(c.Param("id"))
		ctx := c.Request().Context()

		sub, err := subs.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "submission not found"})
		}
		if err != nil {
			logger.Log.Error("load submission failed", zap.String("submission_id", id), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		meta, err := subs.Meta(ctx, id)
		if err != nil {
			logger.Log.Error("load meta failed", zap.String("submission_id", id), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		notes, err := subs.Notes(ctx, id)
		if err != nil {
			logger.Log.Error("load notes failed", zap.String("submission_id", id), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		kv := make(map[string]string, len(meta))
		for _, m := range meta {
			kv[m.Key] = m.Value
		}

		return c.JSON(http.StatusOK, map[string]any{
			"submission": sub,
			"meta":       kv,
			"notes":      notes,
		})
	}
}

package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/objzip/internal/api/middleware"
	"github.com/andresuchdata/objzip/internal/domain"
	"github.com/andresuchdata/objzip/internal/service"
)

type ArchiveHandler struct {
	service *service.ArchiveService
}

func NewArchiveHandler(service *service.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{service: service}
}

// CompressObjects handles POST /api/v1/s3/compress-objects.
//
// The body is either {"key_zip": "...", "files": [{"key": "...", "name": "..."}]},
// which uploads the archive to key_zip, or a bare array of files, which writes the
// archive to the local archive path.
func (h *ArchiveHandler) CompressObjects(c *gin.Context) {
	req, err := decodeArchiveRequest(c)
	if err != nil {
		invalidRequest(c, err)
		return
	}

	res, err := h.service.Compress(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			invalidRequest(c, err)
			return
		}
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("target", req.TargetKey).
			Msg("compress objects failed")
		c.JSON(http.StatusNotFound, domain.ResponseBody[string]{
			Message: domain.MessageCannotFetch,
			Data:    "",
		})
		return
	}

	c.JSON(http.StatusOK, domain.ResponseBody[*domain.ArchiveResult]{
		Message: domain.MessageOK,
		Data:    res,
	})
}

func decodeArchiveRequest(c *gin.Context) (domain.ArchiveRequest, error) {
	var req domain.ArchiveRequest

	raw, err := c.GetRawData()
	if err != nil {
		return req, fmt.Errorf("read body: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return req, errors.New("empty body")
	}

	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &req.Objects); err != nil {
			return req, fmt.Errorf("decode object list: %w", err)
		}
		return req, nil
	}

	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	if req.TargetKey == "" {
		return req, errors.New("key_zip is required")
	}
	return req, nil
}

func invalidRequest(c *gin.Context, err error) {
	log.Warn().
		Err(err).
		Str("request_id", middleware.GetRequestID(c)).
		Msg("rejecting archive request")
	c.JSON(http.StatusBadRequest, domain.ResponseBody[string]{
		Message: domain.MessageInvalidRequest,
		Data:    err.Error(),
	})
}

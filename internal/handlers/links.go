// Package handlers exposes the shorten and resolve operations over huma.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortener-go/internal/shortener"
	"go.uber.org/zap"
)

// LinkHandler handles short-link operations.
type LinkHandler struct {
	service *shortener.Service
	logger  *zap.Logger
}

// NewLinkHandler creates a link handler around the shortener service.
func NewLinkHandler(service *shortener.Service, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		service: service,
		logger:  logger,
	}
}

// Shorten creates or refreshes a short link.
func (h *LinkHandler) Shorten(ctx context.Context, req *ShortenRequest) (*ShortenResponse, error) {
	var ttl *time.Duration

	if req.Body.TTLMinutes != nil {
		d := time.Duration(*req.Body.TTLMinutes) * time.Minute
		ttl = &d
	}

	result, err := h.service.Shorten(ctx, req.Body.URL, ttl)
	if err != nil {
		var validationErr *shortener.ValidationError
		if errors.As(err, &validationErr) {
			return nil, huma.Error400BadRequest(validationErr.Error())
		}

		h.logger.Error("failed to shorten url", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to shorten url")
	}

	resp := &ShortenResponse{}
	resp.Headers.Location = result.ShortURL
	resp.Body.Token = result.Token
	resp.Body.ShortURL = result.ShortURL

	if req.Body.WithDetails {
		resp.Body.Details = &LinkDetails{
			CreatedAt: result.CreatedAt,
			ExpiresAt: result.ExpiresAt,
		}
	}

	return resp, nil
}

// Redirect resolves a token and redirects to its destination URL. Expired
// and unknown tokens both produce a 404.
func (h *LinkHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	url, err := h.service.Resolve(ctx, req.Token)
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return nil, huma.Error404NotFound("short link not found")
		}

		h.logger.Error("failed to resolve token", zap.String("token", req.Token), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to resolve token")
	}

	resp := &RedirectResponse{
		Status: http.StatusMovedPermanently,
	}
	resp.Headers.Location = url

	return resp, nil
}

package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the short-link API operations.
func RegisterRoutes(api huma.API, links *LinkHandler) {
	huma.Register(api, huma.Operation{
		Method:      http.MethodPost,
		Path:        "/shorten",
		Summary:     "Create short link",
		Description: "Shortens a URL, reusing the existing token when an active link for the same URL exists.",
		Tags:        []string{"Links"},
	}, links.Shorten)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/{token}",
		Summary:     "Redirect to destination URL",
		Description: "Resolves a token and redirects to its destination. Expired tokens return 404.",
		Tags:        []string{"Links"},
	}, links.Redirect)

	huma.Register(api, huma.Operation{
		Method:  http.MethodGet,
		Path:    "/health",
		Summary: "Health check",
		Tags:    []string{"Ops"},
	}, func(_ context.Context, _ *struct{}) (*HealthResponse, error) {
		resp := &HealthResponse{}
		resp.Body.Status = "ok"

		return resp, nil
	})
}

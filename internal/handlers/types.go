package handlers

import "time"

// ShortenRequest is the request body for creating a short link.
type ShortenRequest struct {
	Body struct {
		URL         string `doc:"The URL to shorten"                                      example:"https://example.com/very/long/path" json:"url"`
		TTLMinutes  *int   `doc:"Link lifetime in minutes; server default when omitted"   example:"60"                                 json:"ttlMinutes,omitempty"`
		WithDetails bool   `doc:"Include creation and expiry timestamps in the response"  json:"withDetails,omitempty"`
	}
}

// LinkDetails is the optional metadata block returned alongside a short link.
type LinkDetails struct {
	CreatedAt time.Time `doc:"When the link was created"  json:"createdAt"`
	ExpiresAt time.Time `doc:"When the link stops resolving" json:"expiresAt"`
}

// ShortenResponse is the response for a successfully created short link.
type ShortenResponse struct {
	Headers struct {
		Location string `doc:"The short URL location" header:"Location"`
	}
	Body struct {
		Token    string       `doc:"The short token"    example:"kM3xR7a"                       json:"token"`
		ShortURL string       `doc:"The full short URL" example:"http://localhost:8888/kM3xR7a" json:"shortUrl"`
		Details  *LinkDetails `doc:"Link metadata, present when requested"                      json:"details,omitempty"`
	}
}

// RedirectRequest is the request for resolving a short token.
type RedirectRequest struct {
	Token string `doc:"The short token" example:"kM3xR7a" path:"token"`
}

// RedirectResponse redirects the client to the destination URL.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `doc:"The destination URL" header:"Location"`
	}
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Body struct {
		Status string `doc:"Service status" example:"ok" json:"status"`
	}
}

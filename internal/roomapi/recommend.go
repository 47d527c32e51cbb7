package roomapi

import (
	"context"
	"net/http"

	"roomfinder/internal/models"
)

func (c *Client) SetPreferences(ctx context.Context, token string, prefs models.Preferences) (Message, error) {
	body, err := jsonBody(prefs)
	if err != nil {
		return Message{}, err
	}
	var out Message
	err = c.do(ctx, request{
		method:      http.MethodPost,
		segments:    []string{"recommend", "set-preferences"},
		token:       token,
		contentType: "application/json",
		body:        body,
		raw:         true,
	}, &out)
	return out, err
}

func (c *Client) Recommendations(ctx context.Context, token string) ([]models.Listing, error) {
	var out []models.Listing
	err := c.do(ctx, request{method: http.MethodGet, segments: []string{"recommend", "get-recommendations"}, token: token}, &out)
	return out, err
}

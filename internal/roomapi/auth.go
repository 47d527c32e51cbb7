package roomapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"roomfinder/internal/models"
)

func (c *Client) Login(ctx context.Context, in models.LoginRequest) (models.LoginResult, error) {
	body, err := jsonBody(in)
	if err != nil {
		return models.LoginResult{}, err
	}
	var out models.LoginResult
	err = c.do(ctx, request{
		method:      http.MethodPost,
		segments:    []string{"users", "login"},
		contentType: "application/json",
		body:        body,
	}, &out)
	if err != nil {
		return models.LoginResult{}, err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return models.LoginResult{}, errors.New("roomapi: login returned empty accessToken")
	}
	return out, nil
}

func (c *Client) SignUp(ctx context.Context, in models.SignUpRequest) (Message, error) {
	body, err := jsonBody(in)
	if err != nil {
		return Message{}, err
	}
	var out Message
	err = c.do(ctx, request{
		method:      http.MethodPost,
		segments:    []string{"users", "signup"},
		contentType: "application/json",
		body:        body,
		raw:         true,
	}, &out)
	return out, err
}

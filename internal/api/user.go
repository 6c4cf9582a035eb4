package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/budgie-app/budgie/internal/model"
)

const (
	loginPath  = "/api/user/login"
	logoutPath = "/api/user/logout"
	mePath     = "/api/user/me"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login posts credentials. On success the server sets the session cookies
// and returns the user.
func (c *Client) Login(ctx context.Context, username, password string) (model.User, error) {
	resp, err := c.Do(ctx, http.MethodPost, loginPath, nil, credentials{Username: username, Password: password})
	if err != nil {
		return model.User{}, fmt.Errorf("logging in: %w", err)
	}
	if !resp.OK() {
		return model.User{}, &AuthError{Status: resp.Status, Message: resp.Message()}
	}
	u, err := model.DecodeUser(resp.Body)
	if err != nil {
		return model.User{}, fmt.Errorf("decoding login response: %w", err)
	}
	return u, nil
}

// Logout ends the server session. The response body is ignored.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.Do(ctx, http.MethodGet, logoutPath, nil, nil)
	if err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	if !resp.OK() {
		return &AuthError{Status: resp.Status, Message: resp.Message()}
	}
	return nil
}

// Me returns the user the current session belongs to.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	resp, err := c.Do(ctx, http.MethodGet, mePath, nil, nil)
	if err != nil {
		return model.User{}, fmt.Errorf("checking session: %w", err)
	}
	if !resp.OK() {
		return model.User{}, &AuthError{Status: resp.Status, Message: resp.Message()}
	}
	u, err := model.DecodeUser(resp.Body)
	if err != nil {
		return model.User{}, fmt.Errorf("decoding session: %w", err)
	}
	return u, nil
}

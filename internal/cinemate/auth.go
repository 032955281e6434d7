package cinemate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Tokens is the credential pair issued by the backend on login.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

var ErrNoAccessToken = errors.New("cinemate: login response carried no access token")

// Login exchanges username and password, sent as basic auth, for tokens.
func (c *Client) Login(ctx context.Context, username, password string) (Tokens, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/auth/login", nil)
	if err != nil {
		return Tokens{}, err
	}
	req.Header.Del("Authorization")
	req.SetBasicAuth(username, password)

	body, err := c.do(req)
	if err != nil {
		return Tokens{}, err
	}
	var tokens Tokens
	if err := json.Unmarshal(unwrapOne(body), &tokens); err != nil {
		return Tokens{}, fmt.Errorf("cinemate: decode login response: %w", err)
	}
	if tokens.AccessToken == "" {
		return Tokens{}, ErrNoAccessToken
	}
	return tokens, nil
}

// Logout revokes the refresh token.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	_, err := c.sendJSON(ctx, http.MethodPost, "/api/v1/auth/logout", map[string]string{
		"refreshToken": refreshToken,
	})
	return err
}

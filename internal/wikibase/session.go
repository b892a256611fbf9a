package wikibase

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// ErrLogin is returned when the bot password is rejected
var ErrLogin = errors.New("login failed")

// anonymousToken is the csrf token handed to logged-out sessions
const anonymousToken = "+\\"

type tokensResponse struct {
	Query struct {
		Tokens struct {
			LoginToken string `json:"logintoken"`
			CSRFToken  string `json:"csrftoken"`
		} `json:"tokens"`
	} `json:"query"`
}

type loginResponse struct {
	Login struct {
		Result   string `json:"result"`
		Reason   string `json:"reason"`
		UserName string `json:"lgusername"`
	} `json:"login"`
}

// token returns the csrf token, logging in on first use
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.csrfToken != "" {
		return c.csrfToken, nil
	}

	if c.cfg.Username == "" || c.cfg.Password == "" {
		return "", fmt.Errorf("%w: no credentials configured", ErrLogin)
	}

	var lt tokensResponse
	err := c.apiGet(ctx, url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
		"type":   {"login"},
	}, &lt)
	if err != nil {
		return "", fmt.Errorf("fetch login token: %w", err)
	}

	var login loginResponse
	err = c.apiPost(ctx, url.Values{
		"action":     {"login"},
		"lgname":     {c.cfg.Username},
		"lgpassword": {c.cfg.Password},
		"lgtoken":    {lt.Query.Tokens.LoginToken},
	}, &login)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if login.Login.Result != "Success" {
		return "", fmt.Errorf("%w: %s %s", ErrLogin, login.Login.Result, login.Login.Reason)
	}

	var csrf tokensResponse
	err = c.apiGet(ctx, url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
	}, &csrf)
	if err != nil {
		return "", fmt.Errorf("fetch csrf token: %w", err)
	}
	if csrf.Query.Tokens.CSRFToken == "" || csrf.Query.Tokens.CSRFToken == anonymousToken {
		return "", fmt.Errorf("%w: session not authenticated", ErrLogin)
	}

	c.logger.Info("logged in", zap.String("user", login.Login.UserName))
	c.csrfToken = csrf.Query.Tokens.CSRFToken
	return c.csrfToken, nil
}

// invalidateToken forgets the csrf token so the next edit logs in again
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.csrfToken = ""
	c.mu.Unlock()
}

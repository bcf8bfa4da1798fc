package api

import (
	"context"
	"net/http"

	"testinsure/internal/domain/account"
	"testinsure/internal/domain/session"
)

// anonymous detaches any session the caller is signed in with, so the auth
// endpoints never see a stale bearer token.
func anonymous(ctx context.Context) context.Context {
	return session.NewContext(ctx, session.View{Restored: true})
}

// Login exchanges credentials for a token, role and name.
// POST: the request carries no Authorization header
func (c *Client) Login(ctx context.Context, creds account.Credentials) (account.AuthResponse, error) {
	var out account.AuthResponse
	err := c.doJSON(anonymous(ctx), "Login", http.MethodPost, "/auth/login", creds, &out)
	return out, err
}

// Register creates a patient account and returns the same triple as Login.
// POST: the request carries no Authorization header
func (c *Client) Register(ctx context.Context, reg account.Registration) (account.AuthResponse, error) {
	var out account.AuthResponse
	err := c.doJSON(anonymous(ctx), "Register", http.MethodPost, "/auth/register", reg, &out)
	return out, err
}

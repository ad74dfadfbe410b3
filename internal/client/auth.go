package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/congo-pay/mobcash/internal/apperr"
	"github.com/congo-pay/mobcash/internal/navigation"
	"github.com/congo-pay/mobcash/internal/session"
)

// User is the profile returned by the auth endpoints.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Registration is the signup payload.
type Registration struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	RePassword string `json:"re_password"`
}

// ProfileUpdate carries the editable profile fields; empty fields are omitted.
type ProfileUpdate struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// PasswordChange is the password change payload.
type PasswordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
	RePassword  string `json:"confirm_new_password"`
}

type loginRequest struct {
	EmailOrPhone string `json:"email_or_phone"`
	Password     string `json:"password"`
}

type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	Data    User   `json:"data"`
}

// Login authenticates and starts a session.
func (c *Client) Login(ctx context.Context, identifier, password string) (User, error) {
	var out loginResponse
	err := c.JSON(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   loginRequest{EmailOrPhone: identifier, Password: password},
		Public: true,
	}, &out)
	if err != nil {
		return User{}, err
	}
	if err := c.session.Begin(ctx, session.Tokens{AccessToken: out.Access, RefreshToken: out.Refresh}); err != nil {
		return User{}, c.fail(ctx, Request{Method: http.MethodPost, Path: "/auth/login"},
			apperr.Transient(fmt.Errorf("start session: %w", err), ""))
	}
	return out.Data, nil
}

// Register creates an account. It does not start a session.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.JSON(ctx, Request{Method: http.MethodPost, Path: "/auth/registration", Body: reg, Public: true}, nil)
}

// Logout clears the session and returns to the login entry point.
func (c *Client) Logout(ctx context.Context) error {
	err := c.session.End(ctx)
	c.navigator.Navigate(navigation.Login)
	return err
}

// Profile reads the current user.
func (c *Client) Profile(ctx context.Context) (User, error) {
	var out User
	if err := c.JSON(ctx, Request{Method: http.MethodGet, Path: "/auth/me"}, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// UpdateProfile patches the current user.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (User, error) {
	var out User
	if err := c.JSON(ctx, Request{Method: http.MethodPatch, Path: "/auth/me", Body: update}, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// ChangePassword updates the current user's password.
func (c *Client) ChangePassword(ctx context.Context, change PasswordChange) error {
	return c.JSON(ctx, Request{Method: http.MethodPost, Path: "/auth/change_password", Body: change}, nil)
}

// ABOUTME: Authentication endpoints
// ABOUTME: Login, signup and current-user lookup
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
)

type AuthService struct {
	c *api.Client
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Token, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, &models.ValidationError{Field: "email and password", Message: "are required"}
	}
	var tok models.Token
	if err := s.c.Post(ctx, "/auth/login", credentials{Email: strings.TrimSpace(email), Password: password}, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, errors.New("login response carried no access token")
	}
	return &tok, nil
}

func (s *AuthService) Signup(ctx context.Context, form models.SignupForm) (*models.User, error) {
	payload, err := form.Payload()
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := s.c.Post(ctx, "/auth/signup", payload, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the user behind the client's current token.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := s.c.Get(ctx, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

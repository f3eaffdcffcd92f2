package api

import (
	"context"
	"net/http"
	"net/url"
)

// AdminService covers the admin-only user management endpoints. Every call
// fails with an APIError unless the token belongs to an admin account.
type AdminService struct {
	client *Client
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"is_admin"`
}

// ListUsers returns every account.
func (s *AdminService) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.client.do(ctx, http.MethodGet, "/api/admin/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser adds an account. Duplicate emails come back as an APIError.
func (s *AdminService) CreateUser(ctx context.Context, email, password, name string, isAdmin bool) (*User, error) {
	var user User
	request := createUserRequest{Email: email, Password: password, Name: name, IsAdmin: isAdmin}
	if err := s.client.do(ctx, http.MethodPost, "/api/admin/users", request, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes an account. The service refuses to delete the account
// behind the current token.
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	return s.client.do(ctx, http.MethodDelete, "/api/admin/users/"+url.PathEscape(id), nil, nil)
}

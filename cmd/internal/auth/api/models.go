package authapi

import (
	"time"

	"tasker/cmd/identity"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateAccountRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type registerResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Message   string    `json:"message"`
}

type accountResponse struct {
	Account identity.Account `json:"user"`
	Message string           `json:"message,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

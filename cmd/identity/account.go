package identity

import (
	"time"

	"tasker/cmd/internal/store"
)

// Account is a registered principal. The password hash is kept out of this type.
type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func accountFromRecord(r store.Record) Account {
	return Account{
		ID:        r.String("id"),
		Username:  r.String("username"),
		Email:     r.String("email"),
		CreatedAt: r.Time("created_at"),
		UpdatedAt: r.Time("updated_at"),
	}
}

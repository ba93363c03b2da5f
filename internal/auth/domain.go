package auth

import (
	"strconv"
	"time"

	"github.com/kotor-apartments/stayboard/internal/dashboard"
)

// User represents an administrator account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Viewer projects the account onto the dashboard header identity.
func (u *User) Viewer() *dashboard.Viewer {
	if u == nil {
		return nil
	}
	return &dashboard.Viewer{
		ID:    strconv.FormatInt(u.ID, 10),
		Name:  u.Name,
		Email: u.Email,
	}
}

package session

import (
	"slices"
	"strconv"
	"time"
)

// User is the persisted identity record of the signed-in account.
//
// The field set mirrors the backend's user response. Role is informational
// and drives UI branching only; it is never an authorization boundary.
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FullName    string    `json:"full_name"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// Clone returns a deep copy of u. A nil receiver yields nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Permissions = slices.Clone(u.Permissions)
	return &out
}

// Valid reports whether u carries the minimum identity needed to be
// treated as a signed-in user.
func (u *User) Valid() bool {
	return u != nil && u.ID != 0
}

// IDString renders the numeric id for logs and audit events.
func (u *User) IDString() string {
	if u == nil {
		return ""
	}
	return strconv.FormatInt(u.ID, 10)
}

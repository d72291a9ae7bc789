package domain

import "strconv"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Shopper identifies who a cart operation acts for. It is built per request
// from the access token and passed explicitly to every service call.
type Shopper struct {
	UserID    uint
	SessionID string
	Role      string
}

func (s Shopper) IsAdmin() bool { return s.Role == RoleAdmin }

// CartKey is the key of the user's cart mirror. Every session of one user
// shares it.
func (s Shopper) CartKey() string {
	return "user-" + strconv.FormatUint(uint64(s.UserID), 10)
}

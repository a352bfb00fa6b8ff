package session

import (
	"errors"
	"time"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/checkout"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrAdminDisabled     = errors.New("admin sign-in is not configured")
	ErrConflict          = errors.New("session modified concurrently")
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity is what a successful sign-in yields.
type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Session owns the cart and the checkout pipeline of one signed-in user.
type Session struct {
	ID          string            `json:"id"`
	Role        Role              `json:"role"`
	Email       string            `json:"email"`
	DisplayName string            `json:"displayName"`
	Cart        cart.Cart         `json:"cart"`
	Checkout    checkout.Pipeline `json:"checkout"`
	CreatedAt   time.Time         `json:"createdAt"`
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Allows reports whether the session may act with the given role. Admins may also
// act as customers.
func (s Session) Allows(role Role) bool {
	switch role {
	case RoleCustomer:
		return s.Role == RoleCustomer || s.Role == RoleAdmin
	case RoleAdmin:
		return s.Role == RoleAdmin
	default:
		return false
	}
}

// clone copies the cart lines so the copy can be mutated independently.
func (s Session) clone() Session {
	s.Cart.Lines = s.Cart.Snapshot()
	return s
}

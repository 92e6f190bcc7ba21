package application

import "time"

// SweetDTO represents a sweet for API responses
type SweetDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	InStock   bool      `json:"inStock"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserDTO represents a user for API responses. The password hash is never
// part of this shape.
type UserDTO struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResultDTO carries a freshly issued token and its owner
type AuthResultDTO struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserDTO   `json:"user"`
}

// PurchaseResultDTO describes the outcome of a completed purchase
type PurchaseResultDTO struct {
	Sweet     SweetDTO `json:"sweet"`
	Purchased int      `json:"purchased"`
	Remaining int      `json:"remaining"`
}

// RestockResultDTO describes the outcome of a completed restock
type RestockResultDTO struct {
	Sweet    SweetDTO `json:"sweet"`
	Added    int      `json:"added"`
	NewTotal int      `json:"newTotal"`
}

package application

import "github.com/sweetshop/inventory-api/internal/domain"

// CreateSweetCommand represents the command to add a sweet to the catalog
type CreateSweetCommand struct {
	Name      string
	Category  string
	Price     float64
	Quantity  int
	CreatedBy string
}

// UpdateSweetCommand represents the command to partially update a sweet
type UpdateSweetCommand struct {
	ID     string
	Update domain.SweetUpdate
}

// DeleteSweetCommand represents the command to remove a sweet
type DeleteSweetCommand struct {
	ID      string
	ActorID string
}

// PurchaseCommand represents the command to purchase units of a sweet
type PurchaseCommand struct {
	ID       string
	Quantity int
	ActorID  string
}

// RestockCommand represents the command to add units to a sweet's stock
type RestockCommand struct {
	ID       string
	Quantity int
	ActorID  string
}

// GetSweetQuery represents the query to get a sweet by ID
type GetSweetQuery struct {
	ID string
}

// ListSweetsQuery represents the query to list sweets with optional filters
type ListSweetsQuery struct {
	Filter domain.SweetFilter
	Limit  int
	Offset int
}

// RegisterCommand represents the command to register a new user
type RegisterCommand struct {
	Username string
	Email    string
	Password string
}

// LoginCommand represents the command to authenticate a user
type LoginCommand struct {
	Email    string
	Password string
}

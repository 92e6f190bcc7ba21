package domain

import "time"

// DomainEvent is implemented by all sweet inventory events.
type DomainEvent interface {
	EventType() string
}

// SweetCreatedEvent is emitted when a new sweet enters the catalog.
type SweetCreatedEvent struct {
	SweetID    string    `json:"sweetId"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
	CreatedBy  string    `json:"createdBy"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e *SweetCreatedEvent) EventType() string { return "sweets.inventory.created" }

// SweetPurchasedEvent is emitted after a successful atomic decrement.
type SweetPurchasedEvent struct {
	SweetID    string    `json:"sweetId"`
	Quantity   int       `json:"quantity"`
	Remaining  int       `json:"remaining"`
	ActorID    string    `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e *SweetPurchasedEvent) EventType() string { return "sweets.inventory.purchased" }

// SweetRestockedEvent is emitted after a successful restock.
type SweetRestockedEvent struct {
	SweetID    string    `json:"sweetId"`
	Quantity   int       `json:"quantity"`
	NewTotal   int       `json:"newTotal"`
	ActorID    string    `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e *SweetRestockedEvent) EventType() string { return "sweets.inventory.restocked" }

// SweetOutOfStockEvent is emitted when a purchase drives quantity to zero.
type SweetOutOfStockEvent struct {
	SweetID    string    `json:"sweetId"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e *SweetOutOfStockEvent) EventType() string { return "sweets.inventory.out_of_stock" }

// SweetDeletedEvent is emitted when a sweet is removed from the catalog.
type SweetDeletedEvent struct {
	SweetID    string    `json:"sweetId"`
	Name       string    `json:"name"`
	ActorID    string    `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e *SweetDeletedEvent) EventType() string { return "sweets.inventory.deleted" }

// UserRegisteredEvent is emitted when a new user account is created.
type UserRegisteredEvent struct {
	UserID     string    `json:"userId"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e *UserRegisteredEvent) EventType() string { return "sweets.users.registered" }

package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/sweetshop/inventory-api/internal/domain"
	"github.com/sweetshop/inventory-api/pkg/errors"
	"github.com/sweetshop/inventory-api/pkg/logging"
	"github.com/sweetshop/inventory-api/pkg/metrics"
)

// SweetApplicationService handles sweet inventory use cases
type SweetApplicationService struct {
	repo      domain.SweetRepository
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// NewSweetApplicationService creates a new SweetApplicationService
func NewSweetApplicationService(
	repo domain.SweetRepository,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	logger *logging.Logger,
) *SweetApplicationService {
	return &SweetApplicationService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// CreateSweet adds a new sweet to the catalog
func (s *SweetApplicationService) CreateSweet(ctx context.Context, cmd CreateSweetCommand) (*SweetDTO, error) {
	sweet, err := domain.NewSweet(cmd.Name, cmd.Category, cmd.Price, cmd.Quantity)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.repo.Create(ctx, sweet); err != nil {
		s.logger.Error("Failed to create sweet", "name", cmd.Name, "error", err)
		return nil, fmt.Errorf("failed to create sweet: %w", err)
	}

	s.publish(ctx, &domain.SweetCreatedEvent{
		SweetID:    sweet.ID.Hex(),
		Name:       sweet.Name,
		Category:   sweet.Category,
		Price:      sweet.Price,
		Quantity:   sweet.Quantity,
		CreatedBy:  cmd.CreatedBy,
		OccurredAt: time.Now().UTC(),
	})

	if s.metrics != nil {
		s.metrics.RecordSweetCreated(sweet.Category)
	}

	s.logger.Info("Created sweet", "id", sweet.ID.Hex(), "name", sweet.Name, "category", sweet.Category)
	return ToSweetDTO(sweet), nil
}

// GetSweet retrieves a sweet by ID
func (s *SweetApplicationService) GetSweet(ctx context.Context, query GetSweetQuery) (*SweetDTO, error) {
	sweet, err := s.repo.FindByID(ctx, query.ID)
	if err != nil {
		s.logger.Error("Failed to get sweet", "id", query.ID, "error", err)
		return nil, fmt.Errorf("failed to get sweet: %w", err)
	}

	if sweet == nil {
		return nil, errors.ErrNotFoundWithID("sweet", query.ID)
	}

	return ToSweetDTO(sweet), nil
}

// ListSweets lists sweets matching the query's filter, newest first
func (s *SweetApplicationService) ListSweets(ctx context.Context, query ListSweetsQuery) ([]SweetDTO, int64, error) {
	sweets, err := s.repo.FindAll(ctx, query.Filter, query.Limit, query.Offset)
	if err != nil {
		s.logger.Error("Failed to list sweets", "error", err)
		return nil, 0, fmt.Errorf("failed to list sweets: %w", err)
	}

	total, err := s.repo.Count(ctx, query.Filter)
	if err != nil {
		s.logger.Error("Failed to count sweets", "error", err)
		return nil, 0, fmt.Errorf("failed to count sweets: %w", err)
	}

	return ToSweetDTOs(sweets), total, nil
}

// UpdateSweet applies a partial update to a sweet
func (s *SweetApplicationService) UpdateSweet(ctx context.Context, cmd UpdateSweetCommand) (*SweetDTO, error) {
	if cmd.Update.IsEmpty() {
		return nil, errors.ErrValidation("at least one field must be provided")
	}

	if err := cmd.Update.Validate(); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	sweet, err := s.repo.UpdateByID(ctx, cmd.ID, cmd.Update)
	if err != nil {
		s.logger.Error("Failed to update sweet", "id", cmd.ID, "error", err)
		return nil, fmt.Errorf("failed to update sweet: %w", err)
	}

	if sweet == nil {
		return nil, errors.ErrNotFoundWithID("sweet", cmd.ID)
	}

	s.logger.Info("Updated sweet", "id", cmd.ID)
	return ToSweetDTO(sweet), nil
}

// DeleteSweet removes a sweet from the catalog and returns its last state
func (s *SweetApplicationService) DeleteSweet(ctx context.Context, cmd DeleteSweetCommand) (*SweetDTO, error) {
	sweet, err := s.repo.DeleteByID(ctx, cmd.ID)
	if err != nil {
		s.logger.Error("Failed to delete sweet", "id", cmd.ID, "error", err)
		return nil, fmt.Errorf("failed to delete sweet: %w", err)
	}

	if sweet == nil {
		return nil, errors.ErrNotFoundWithID("sweet", cmd.ID)
	}

	s.publish(ctx, &domain.SweetDeletedEvent{
		SweetID:    sweet.ID.Hex(),
		Name:       sweet.Name,
		ActorID:    cmd.ActorID,
		OccurredAt: time.Now().UTC(),
	})

	if s.metrics != nil {
		s.metrics.RecordSweetDeleted()
	}

	s.logger.Info("Deleted sweet", "id", cmd.ID, "name", sweet.Name)
	return ToSweetDTO(sweet), nil
}

// Purchase decrements a sweet's stock by the requested quantity. The store
// performs the decrement conditionally in a single operation, so the quantity
// can never be driven below zero even under concurrent purchases.
func (s *SweetApplicationService) Purchase(ctx context.Context, cmd PurchaseCommand) (*PurchaseResultDTO, error) {
	sweet, err := s.repo.FindByID(ctx, cmd.ID)
	if err != nil {
		s.logger.Error("Failed to get sweet", "id", cmd.ID, "error", err)
		return nil, fmt.Errorf("failed to get sweet: %w", err)
	}

	if sweet == nil {
		return nil, errors.ErrNotFoundWithID("sweet", cmd.ID)
	}

	// Advisory pre-check against the snapshot for friendly error messaging.
	// The conditional decrement below is the authoritative check.
	if err := sweet.CheckPurchase(cmd.Quantity); err != nil {
		return nil, s.mapPurchaseError(err, sweet)
	}

	updated, err := s.repo.DecrementQuantity(ctx, cmd.ID, cmd.Quantity)
	if err != nil {
		s.logger.Error("Failed to decrement quantity", "id", cmd.ID, "error", err)
		return nil, fmt.Errorf("failed to purchase sweet: %w", err)
	}

	if updated == nil {
		// Lost a race: the stock moved between the snapshot and the decrement.
		// Re-read to classify the rejection.
		return nil, s.classifyLostRace(ctx, cmd.ID)
	}

	s.publish(ctx, &domain.SweetPurchasedEvent{
		SweetID:    updated.ID.Hex(),
		Quantity:   cmd.Quantity,
		Remaining:  updated.Quantity,
		ActorID:    cmd.ActorID,
		OccurredAt: time.Now().UTC(),
	})

	if updated.Quantity == 0 {
		s.publish(ctx, &domain.SweetOutOfStockEvent{
			SweetID:    updated.ID.Hex(),
			Name:       updated.Name,
			OccurredAt: time.Now().UTC(),
		})
	}

	if s.metrics != nil {
		s.metrics.RecordPurchase(updated.Category, cmd.Quantity)
	}

	s.logger.Info("Purchased sweet",
		"id", updated.ID.Hex(),
		"quantity", cmd.Quantity,
		"remaining", updated.Quantity,
		"actorId", cmd.ActorID,
	)

	return &PurchaseResultDTO{
		Sweet:     *ToSweetDTO(updated),
		Purchased: cmd.Quantity,
		Remaining: updated.Quantity,
	}, nil
}

// Restock increases a sweet's stock by the requested quantity
func (s *SweetApplicationService) Restock(ctx context.Context, cmd RestockCommand) (*RestockResultDTO, error) {
	sweet, err := s.repo.FindByID(ctx, cmd.ID)
	if err != nil {
		s.logger.Error("Failed to get sweet", "id", cmd.ID, "error", err)
		return nil, fmt.Errorf("failed to get sweet: %w", err)
	}

	if sweet == nil {
		return nil, errors.ErrNotFoundWithID("sweet", cmd.ID)
	}

	if err := sweet.CheckRestock(cmd.Quantity); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	updated, err := s.repo.ApplyQuantityDelta(ctx, cmd.ID, cmd.Quantity)
	if err != nil {
		s.logger.Error("Failed to apply quantity delta", "id", cmd.ID, "error", err)
		return nil, fmt.Errorf("failed to restock sweet: %w", err)
	}

	if updated == nil {
		return nil, errors.ErrNotFoundWithID("sweet", cmd.ID)
	}

	s.publish(ctx, &domain.SweetRestockedEvent{
		SweetID:    updated.ID.Hex(),
		Quantity:   cmd.Quantity,
		NewTotal:   updated.Quantity,
		ActorID:    cmd.ActorID,
		OccurredAt: time.Now().UTC(),
	})

	if s.metrics != nil {
		s.metrics.RecordRestock(updated.Category)
	}

	s.logger.Info("Restocked sweet",
		"id", updated.ID.Hex(),
		"quantity", cmd.Quantity,
		"newTotal", updated.Quantity,
		"actorId", cmd.ActorID,
	)

	return &RestockResultDTO{
		Sweet:    *ToSweetDTO(updated),
		Added:    cmd.Quantity,
		NewTotal: updated.Quantity,
	}, nil
}

func (s *SweetApplicationService) mapPurchaseError(err error, sweet *domain.Sweet) error {
	switch {
	case stderrors.Is(err, domain.ErrOutOfStock):
		if s.metrics != nil {
			s.metrics.RecordPurchaseRejected("out_of_stock")
		}
		return errors.ErrOutOfStock(sweet.Name)
	case stderrors.Is(err, domain.ErrInsufficientQuantity):
		if s.metrics != nil {
			s.metrics.RecordPurchaseRejected("insufficient_quantity")
		}
		return errors.ErrInsufficientQuantity(sweet.Quantity)
	default:
		return errors.ErrValidation(err.Error())
	}
}

// classifyLostRace re-reads the sweet after a failed conditional decrement to
// report the same errors a losing pre-check would have produced.
func (s *SweetApplicationService) classifyLostRace(ctx context.Context, id string) error {
	sweet, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get sweet: %w", err)
	}

	if sweet == nil {
		return errors.ErrNotFoundWithID("sweet", id)
	}

	if sweet.Quantity == 0 {
		if s.metrics != nil {
			s.metrics.RecordPurchaseRejected("out_of_stock")
		}
		return errors.ErrOutOfStock(sweet.Name)
	}

	if s.metrics != nil {
		s.metrics.RecordPurchaseRejected("insufficient_quantity")
	}
	return errors.ErrInsufficientQuantity(sweet.Quantity)
}

func (s *SweetApplicationService) publish(ctx context.Context, event domain.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "eventType", event.EventType(), "error", err)
	}
}

package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pocketbook/internal/amqp"
	"pocketbook/internal/core"
	applog "pocketbook/internal/log"
	"pocketbook/internal/storage"
)

type PocketInput struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

// PocketPatch updates only the fields that are set.
type PocketPatch struct {
	Name  *string `json:"name"`
	Emoji *string `json:"emoji"`
}

type PocketService struct {
	pockets storage.PocketRepository
	events  *eventSink
	logger  *slog.Logger
}

func NewPocketService(pockets storage.PocketRepository, events *eventSink, logger *slog.Logger) *PocketService {
	return &PocketService{
		pockets: pockets,
		events:  events,
		logger:  logger.With(applog.FieldComponent, applog.ComponentPocket),
	}
}

func (s *PocketService) List(ctx context.Context, userID uuid.UUID) ([]core.Pocket, error) {
	pockets, err := s.pockets.FindByOwner(ctx, userID)
	if err != nil {
		return nil, core.DatabaseError("list pockets", err)
	}
	return pockets, nil
}

// Get returns the pocket if it exists and belongs to userID.
func (s *PocketService) Get(ctx context.Context, userID, id uuid.UUID) (*core.Pocket, error) {
	p, err := s.pockets.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get pocket", err, "Pocket not found")
	}
	if err := checkOwner(p.UserID, userID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PocketService) Create(ctx context.Context, userID uuid.UUID, in PocketInput) (*core.Pocket, error) {
	var v core.Validator
	v.Length(in.Name, "name", 1, 100, "Name must be between 1 and 100 characters")
	v.Length(in.Emoji, "emoji", 1, 10, "Emoji must be between 1 and 10 characters")
	if err := v.Err(); err != nil {
		return nil, err
	}

	p := &core.Pocket{UserID: userID, Name: in.Name, Emoji: in.Emoji, Balance: decimal.Zero}
	if err := s.pockets.Create(ctx, p); err != nil {
		return nil, core.DatabaseError("create pocket", err)
	}

	s.events.emit(ctx, amqp.EntityPocket, amqp.ActionCreated, p.ID.String(), userID)
	return p, nil
}

func (s *PocketService) Update(ctx context.Context, userID, id uuid.UUID, patch PocketPatch) (*core.Pocket, error) {
	var v core.Validator
	if patch.Name != nil {
		v.Length(*patch.Name, "name", 1, 100, "Name must be between 1 and 100 characters")
	}
	if patch.Emoji != nil {
		v.Length(*patch.Emoji, "emoji", 1, 10, "Emoji must be between 1 and 10 characters")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Emoji != nil {
		p.Emoji = *patch.Emoji
	}
	if err := s.pockets.Update(ctx, p); err != nil {
		return nil, lookupErr("update pocket", err, "Pocket not found")
	}

	s.events.emit(ctx, amqp.EntityPocket, amqp.ActionUpdated, p.ID.String(), userID)
	return p, nil
}

// Delete removes the pocket. Transactions that referenced it keep their rows
// with no account.
func (s *PocketService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.pockets.Delete(ctx, id); err != nil {
		return lookupErr("delete pocket", err, "Pocket not found")
	}

	s.logger.InfoContext(ctx, "Pocket deleted", applog.FieldEntityID, id.String(), applog.FieldUserID, userID.String())
	s.events.emit(ctx, amqp.EntityPocket, amqp.ActionDeleted, id.String(), userID)
	return nil
}

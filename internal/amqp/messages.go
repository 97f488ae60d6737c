package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entities and actions carried by ledger events.
const (
	EntityTransaction = "transaction"
	EntityPocket      = "pocket"
	EntityBudget      = "budget"
	EntityUser        = "user"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// LedgerEvent announces a committed mutation. It carries identifiers only;
// consumers read the current row from the database.
type LedgerEvent struct {
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps an event with the current time.
func NewLedgerEvent(entity, action, id string, userID uuid.UUID) *LedgerEvent {
	return &LedgerEvent{
		Entity:    entity,
		Action:    action,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects ones missing entity, action or id.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Entity == "" || e.Action == "" || e.ID == "" {
		return nil, fmt.Errorf("incomplete ledger event: %s", data)
	}
	return &e, nil
}

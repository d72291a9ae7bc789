package mykafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TopicCart    = "cart_events"
	TopicOrder   = "order_events"
	TopicProduct = "product_events"
	TopicUser    = "user_events"
)

const (
	EventCartItemAdded    = "CartItemAdded"
	EventCartItemUpdated  = "CartItemUpdated"
	EventCartItemRemoved  = "CartItemRemoved"
	EventCartCleared      = "CartCleared"
	EventOrderPlaced      = "OrderPlaced"
	EventCheckoutUndone   = "CheckoutUndone"
	EventProductCreated   = "ProductCreated"
	EventProductUpdated   = "ProductUpdated"
	EventProductDeleted   = "ProductDeleted"
	EventProductRestocked = "ProductRestocked"
	EventUserRegistered   = "UserRegistered"
	EventUserLoggedIn     = "UserLoggedIn"
)

const eventVersion = 1

// Event is the envelope every message is wrapped in.
type Event struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	Key          string          `json:"key"`
	Payload      json.RawMessage `json:"payload"`
}

// NewEvent wraps payload into an envelope keyed by key, usually a user or
// product id.
func NewEvent(eventType, key string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("kafka: marshal %s payload: %w", eventType, err)
	}
	return Event{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: eventVersion,
		OccurredAt:   time.Now().UTC(),
		Key:          key,
		Payload:      b,
	}, nil
}

func UnwrapPayload[T any](ev Event) (T, error) {
	var t T
	if err := json.Unmarshal(ev.Payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

type CartItemPayload struct {
	UserID    uint `json:"user_id"`
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
	Remaining int  `json:"remaining"`
}

type CartClearedPayload struct {
	UserID uint `json:"user_id"`
	Lines  int  `json:"lines"`
}

type ItemQty struct {
	ProductID uint `json:"product_id"`
	Qty       int  `json:"qty"`
}

type OrderPlacedPayload struct {
	OrderID     uint      `json:"order_id"`
	UserID      uint      `json:"user_id"`
	Total       string    `json:"total"`
	DeliveryFee string    `json:"delivery_fee"`
	Items       []ItemQty `json:"items"`
}

type CheckoutUndonePayload struct {
	OrderID  uint      `json:"order_id"`
	UserID   uint      `json:"user_id"`
	Restored []ItemQty `json:"restored"`
	Skipped  []uint    `json:"skipped,omitempty"`
}

type ProductPayload struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
}

type UserPayload struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

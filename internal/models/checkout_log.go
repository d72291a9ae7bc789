package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type CheckoutItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// CheckoutItems is stored as a JSON text column.
type CheckoutItems []CheckoutItem

func (c CheckoutItems) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *CheckoutItems) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("checkout items: unsupported type %T", src)
	}
	return json.Unmarshal(raw, c)
}

// CheckoutLog is the undo log: one entry per committed checkout, newest
// claimed first by an undo.
type CheckoutLog struct {
	ID        uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint          `gorm:"index;not null"           json:"user_id"`
	OrderID   uint          `gorm:"index;not null"           json:"order_id"`
	Items     CheckoutItems `gorm:"type:text;not null"       json:"items"`
	CreatedAt time.Time     `json:"created_at"`
}

func (CheckoutLog) TableName() string {
	return "checkout_log"
}

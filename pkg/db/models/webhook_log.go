package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookLog durably records every inbound payment provider event before
// dispatch. It is the recovery path when an order lookup drops a payment.
type WebhookLog struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	EventType     string          `gorm:"column:event_type;not null;index"`
	Reference     string          `gorm:"column:reference;index"`
	AmountCents   int             `gorm:"column:amount_cents"`
	CustomerEmail string          `gorm:"column:customer_email"`
	Payload       json.RawMessage `gorm:"column:payload;type:jsonb"`
	OrderID       *uuid.UUID      `gorm:"column:order_id;type:uuid"`
	Processed     bool            `gorm:"column:processed;not null;default:false"`
	Notes         *string         `gorm:"column:notes"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime;index"`
}

package types

import "github.com/google/uuid"

// OrderItem is a checkout line item as persisted on the order row.
type OrderItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantKey     string    `json:"variant_key"`
	Name           string    `json:"name"`
	Qty            int       `json:"qty"`
	UnitPriceCents int       `json:"unit_price_cents"`
}

// OrderItems is stored as a JSON column (jsonb on Postgres, serialized TEXT
// on the SQLite fallback).
type OrderItems []OrderItem

package model

import "time"

// Product represents a catalogue item. PriceCents is the authoritative unit
// price; clients never supply prices.
type Product struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	PriceCents  int64     `json:"priceCents" db:"price_cents"`
	ImageKey    string    `json:"-" db:"image_key"`
	ImageURL    string    `json:"imageUrl,omitempty" db:"-"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

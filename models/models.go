package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Item statuses as stored in the items table
const (
	StatusAvailable = "Available"
	StatusClaimed   = "Claimed"
	StatusPurchased = "Purchased"
)

// Item represents a wishlist item whose price is being tracked
type Item struct {
	ID              int             `json:"id" db:"id"`
	Description     string          `json:"description" db:"description"`
	Link            string          `json:"link" db:"link"`
	Price           sql.NullFloat64 `json:"price" db:"price"`
	Status          string          `json:"status" db:"status"`
	UserID          int             `json:"user_id" db:"user_id"`
	LastUpdatedByID sql.NullInt64   `json:"last_updated_by_id" db:"last_updated_by_id"`
	ImageURL        sql.NullString  `json:"image_url" db:"image_url"`
	PriceUpdatedAt  *time.Time      `json:"price_updated_at" db:"price_updated_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// GetPrice returns the current price as float64, or 0 if NULL
func (i *Item) GetPrice() float64 {
	if i.Price.Valid {
		return i.Price.Float64
	}
	return 0.0
}

// HasPrice returns true if the item has a known price
func (i *Item) HasPrice() bool {
	return i.Price.Valid
}

// ClaimerID returns the id of the last user who changed the item's status,
// or 0 if nobody has
func (i *Item) ClaimerID() int {
	if i.LastUpdatedByID.Valid {
		return int(i.LastUpdatedByID.Int64)
	}
	return 0
}

// MarshalJSON implements custom JSON marshaling for Item
func (i *Item) MarshalJSON() ([]byte, error) {
	type Alias Item
	var price *float64
	if i.Price.Valid {
		p := i.Price.Float64
		price = &p
	}
	var imageURL *string
	if i.ImageURL.Valid {
		u := i.ImageURL.String
		imageURL = &u
	}
	return json.Marshal(&struct {
		*Alias
		Price    *float64 `json:"price"`
		ImageURL *string  `json:"image_url"`
	}{
		Alias:    (*Alias)(i),
		Price:    price,
		ImageURL: imageURL,
	})
}

// Price history sources
const (
	SourceInitial = "initial"
	SourceAuto    = "auto"
	SourceManual  = "manual"
)

// PriceHistoryPoint represents one recorded price observation for an item
type PriceHistoryPoint struct {
	ID         int       `json:"id" db:"id"`
	ItemID     int       `json:"item_id" db:"item_id"`
	Price      float64   `json:"price" db:"price"`
	Source     string    `json:"source" db:"source"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}

// PriceHistoryStats summarizes an item's price history over a window
type PriceHistoryStats struct {
	ItemID   int      `json:"item_id"`
	Days     int      `json:"days"`
	Count    int      `json:"count"`
	MinPrice *float64 `json:"min_price"`
	MaxPrice *float64 `json:"max_price"`
	AvgPrice *float64 `json:"avg_price"`
}

// ExtractionAttempt is one append-only row in the extraction log
type ExtractionAttempt struct {
	ID             int             `json:"id" db:"id"`
	URL            string          `json:"url" db:"url"`
	Domain         string          `json:"domain" db:"domain"`
	Success        bool            `json:"success" db:"success"`
	Price          sql.NullFloat64 `json:"price" db:"price"`
	Method         string          `json:"method" db:"method"`
	ErrorKind      sql.NullString  `json:"error_kind" db:"error_kind"`
	ResponseTimeMs int             `json:"response_time_ms" db:"response_time_ms"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// DomainSuccessRate aggregates extraction outcomes for one domain
type DomainSuccessRate struct {
	Domain      string  `json:"domain"`
	Total       int     `json:"total"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"success_rate"` // percentage, one decimal
}

// Notification is a message delivered to a user
type Notification struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	Link      string    `json:"link" db:"link"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BatchUpdateStats summarizes one stale-price batch run
type BatchUpdateStats struct {
	ItemsProcessed int `json:"items_processed"`
	PricesUpdated  int `json:"prices_updated"`
	PriceDrops     int `json:"price_drops"`
	Errors         int `json:"errors"`
}

// ProductMetadata is the result of metadata extraction for a pasted link
type ProductMetadata struct {
	Title       string   `json:"title"`
	Price       *float64 `json:"price"`
	ImageURL    string   `json:"image_url"`
	Description string   `json:"description"`
	Domain      string   `json:"domain"`
}

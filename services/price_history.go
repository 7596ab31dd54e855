package services

import (
	"log"
	"math"
	"time"

	"pricewatch/models"
)

// HistoryStore is the persistence surface the recorder needs
type HistoryStore interface {
	Latest(itemID int) (*models.PriceHistoryPoint, error)
	Insert(point *models.PriceHistoryPoint) error
}

// HistoryRecorder decides whether an observed price is worth a new history
// row. A point is recorded when the item has no history yet, when the price
// moved by more than a cent, or when the latest point is older than the
// heartbeat interval (so flat periods still chart).
type HistoryRecorder struct {
	store     HistoryStore
	heartbeat time.Duration

	now func() time.Time
}

func NewHistoryRecorder(store HistoryStore) *HistoryRecorder {
	return &HistoryRecorder{
		store:     store,
		heartbeat: 6 * time.Hour,
		now:       time.Now,
	}
}

// Record returns true when a new history point was written
func (r *HistoryRecorder) Record(itemID int, price *float64, source string) bool {
	if price == nil || *price < 0 {
		return false
	}

	latest, err := r.store.Latest(itemID)
	if err != nil {
		log.Printf("⚠️  Failed to load latest history point for item %d: %v", itemID, err)
		return false
	}

	if latest != nil {
		changed := math.Abs(latest.Price-*price) > 0.01
		stale := r.now().Sub(latest.RecordedAt) > r.heartbeat
		if !changed && !stale {
			return false
		}
	}

	point := &models.PriceHistoryPoint{
		ItemID:     itemID,
		Price:      *price,
		Source:     source,
		RecordedAt: r.now(),
	}
	if err := r.store.Insert(point); err != nil {
		log.Printf("⚠️  Failed to record price history for item %d: %v", itemID, err)
		return false
	}
	return true
}

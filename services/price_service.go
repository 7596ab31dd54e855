package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"pricewatch/config"
	"pricewatch/models"
	"pricewatch/repository"
	"pricewatch/scraper"
)

// ItemStore is the slice of item persistence the price service uses
type ItemStore interface {
	ItemsNeedingRefresh(cutoff time.Time, forceAll bool) ([]models.Item, error)
	ItemByID(id int) (*models.Item, error)
	UpdatePrice(id int, price float64, checkedAt time.Time) error
	TouchPriceCheckedAt(id int, checkedAt time.Time) error
}

// Notifier delivers price-drop messages to users
type Notifier interface {
	Notify(userID int, message, link string) error
}

// BatchPriceFetcher resolves prices and metadata for product URLs
type BatchPriceFetcher interface {
	FetchMany(ctx context.Context, urls []string) map[string]*float64
	FetchOne(ctx context.Context, url string) (*float64, scraper.FailureKind)
	FetchMetadata(ctx context.Context, url string) (*models.ProductMetadata, error)
}

// RefreshResult is the outcome of a single-item refresh
type RefreshResult struct {
	Success  bool     `json:"success"`
	NewPrice *float64 `json:"new_price"`
	Message  string   `json:"message"`
}

// PriceService ties the fetch pipeline to items, history and notifications
type PriceService struct {
	items    ItemStore
	notifier Notifier
	fetcher  BatchPriceFetcher
	history  *HistoryRecorder

	staleAfter    time.Duration
	dropThreshold float64 // percent

	now func() time.Time
}

func NewPriceService(items ItemStore, notifier Notifier, fetcher BatchPriceFetcher, history *HistoryRecorder, cfg config.BatchConfig) *PriceService {
	return &PriceService{
		items:         items,
		notifier:      notifier,
		fetcher:       fetcher,
		history:       history,
		staleAfter:    cfg.StaleAfter,
		dropThreshold: cfg.DropThreshold,
		now:           time.Now,
	}
}

// UpdateStalePrices refreshes every linked item whose last price check is
// older than the stale window (or all linked items when forced).
func (s *PriceService) UpdateStalePrices(ctx context.Context, forceAll bool) (*models.BatchUpdateStats, error) {
	cutoff := s.now().Add(-s.staleAfter)
	items, err := s.items.ItemsNeedingRefresh(cutoff, forceAll)
	if err != nil {
		return nil, fmt.Errorf("failed to load items needing refresh: %v", err)
	}

	stats := &models.BatchUpdateStats{}
	if len(items) == 0 {
		log.Println("✅ No stale prices to update")
		return stats, nil
	}

	// Duplicate links resolve once and fan out to every item sharing them
	byURL := make(map[string][]models.Item)
	var urls []string
	for _, item := range items {
		if item.Link == "" {
			continue
		}
		if _, seen := byURL[item.Link]; !seen {
			urls = append(urls, item.Link)
		}
		byURL[item.Link] = append(byURL[item.Link], item)
	}

	log.Printf("🔄 Updating %d items across %d URLs", len(items), len(urls))
	prices := s.fetcher.FetchMany(ctx, urls)

	for url, group := range byURL {
		price := prices[url]
		for i := range group {
			item := &group[i]
			stats.ItemsProcessed++

			if price == nil {
				stats.Errors++
				// bump the timestamp so one dead URL cannot wedge the queue
				if err := s.items.TouchPriceCheckedAt(item.ID, s.now()); err != nil {
					log.Printf("⚠️  Failed to touch item %d: %v", item.ID, err)
				}
				continue
			}

			updated, dropped := s.applyPrice(item, *price, models.SourceAuto)
			if updated {
				stats.PricesUpdated++
			}
			if dropped {
				stats.PriceDrops++
			}
		}
	}

	log.Printf("✅ Batch update done: %d processed, %d updated, %d drops, %d errors",
		stats.ItemsProcessed, stats.PricesUpdated, stats.PriceDrops, stats.Errors)
	return stats, nil
}

// RefreshItemPrice re-fetches a single item's price on demand
func (s *PriceService) RefreshItemPrice(ctx context.Context, itemID int) (*RefreshResult, error) {
	item, err := s.items.ItemByID(itemID)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load item %d: %v", itemID, err)
	}

	if item.Link == "" {
		return &RefreshResult{Success: false, Message: "Item has no link"}, nil
	}

	price, kind := s.fetcher.FetchOne(ctx, item.Link)
	if price == nil {
		// bump the timestamp so the batch does not immediately re-fetch a
		// link that just failed
		if err := s.items.TouchPriceCheckedAt(item.ID, s.now()); err != nil {
			log.Printf("⚠️  Failed to touch item %d: %v", item.ID, err)
		}
		msg := "Could not fetch price from URL"
		switch kind {
		case scraper.FailureCaptcha, scraper.FailureRateLimited, scraper.FailureIdentityUnavailable:
			msg = "This site is blocking automated price checks right now. Try again later or edit the price manually"
		}
		return &RefreshResult{Success: false, Message: msg}, nil
	}

	var msg string
	switch {
	case !item.HasPrice():
		msg = fmt.Sprintf("Price found: $%.2f", *price)
	case math.Abs(item.GetPrice()-*price) <= 0.01:
		msg = "Price confirmed (no change)"
	default:
		msg = fmt.Sprintf("Price updated from $%.2f to $%.2f", item.GetPrice(), *price)
	}

	s.applyPrice(item, *price, models.SourceManual)
	return &RefreshResult{Success: true, NewPrice: price, Message: msg}, nil
}

// FetchMetadata resolves title/price/image for a pasted product link
func (s *PriceService) FetchMetadata(ctx context.Context, url string) (*models.ProductMetadata, error) {
	meta, err := s.fetcher.FetchMetadata(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata: %v", err)
	}
	return meta, nil
}

// applyPrice commits a freshly observed price: updates the item row, records
// history, and emits drop notifications when the decrease clears the
// threshold. Returns whether the stored price changed and whether a drop was
// notified. source distinguishes scheduled observations from user-requested
// refreshes in the history.
func (s *PriceService) applyPrice(item *models.Item, newPrice float64, source string) (updated bool, dropped bool) {
	now := s.now()

	if err := s.items.UpdatePrice(item.ID, newPrice, now); err != nil {
		log.Printf("⚠️  Failed to update price for item %d: %v", item.ID, err)
		return false, false
	}

	s.history.Record(item.ID, &newPrice, source)

	oldPrice := item.GetPrice()
	changed := !item.HasPrice() || math.Abs(oldPrice-newPrice) > 0.01

	if item.HasPrice() && newPrice < oldPrice {
		dropPct := (oldPrice - newPrice) / oldPrice * 100
		if dropPct >= s.dropThreshold {
			s.notifyPriceDrop(item, oldPrice, newPrice, dropPct)
			dropped = true
		}
	}

	item.Price.Float64 = newPrice
	item.Price.Valid = true
	return changed, dropped
}

func (s *PriceService) notifyPriceDrop(item *models.Item, oldPrice, newPrice, dropPct float64) {
	desc := item.Description
	if len(desc) > 50 {
		desc = desc[:50]
	}

	log.Printf("🎉 Price drop on item %d: $%.2f -> $%.2f (%.0f%%)", item.ID, oldPrice, newPrice, dropPct)

	ownerMsg := fmt.Sprintf("🎉 Price drop! '%s' is now $%.2f (was $%.2f) - %.0f%% off!", desc, newPrice, oldPrice, dropPct)
	if err := s.notifier.Notify(item.UserID, ownerMsg, fmt.Sprintf("/items?user_filter=%d", item.UserID)); err != nil {
		log.Printf("⚠️  Failed to notify user %d: %v", item.UserID, err)
	}

	// the claimer gets their own message, but never a duplicate when they
	// are also the owner
	claimer := item.ClaimerID()
	if claimer == 0 || claimer == item.UserID {
		return
	}
	if item.Status != models.StatusClaimed && item.Status != models.StatusPurchased {
		return
	}
	claimerMsg := fmt.Sprintf("💰 Price drop on '%s' you claimed! Now $%.2f (was $%.2f)", desc, newPrice, oldPrice)
	if err := s.notifier.Notify(claimer, claimerMsg, "/my-claims"); err != nil {
		log.Printf("⚠️  Failed to notify user %d: %v", claimer, err)
	}
}

package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"pricewatch/services"
)

// PriceChecker runs the stale-price batch on a fixed schedule
type PriceChecker struct {
	cron    *cron.Cron
	service *services.PriceService
	timeout time.Duration
}

func NewPriceChecker(service *services.PriceService) *PriceChecker {
	return &PriceChecker{
		cron:    cron.New(cron.WithSeconds()),
		service: service,
		timeout: 30 * time.Minute,
	}
}

// Start schedules the batch every 12 hours and kicks one off immediately
func (pc *PriceChecker) Start() {
	_, err := pc.cron.AddFunc("0 0 */12 * * *", pc.runBatch)
	if err != nil {
		log.Printf("Failed to schedule price checker: %v", err)
		return
	}

	go pc.runBatch()

	pc.cron.Start()
	log.Println("Price checker scheduled to run every 12 hours")
}

// Stop stops the scheduled price checking
func (pc *PriceChecker) Stop() {
	if pc.cron != nil {
		pc.cron.Stop()
	}
}

// ManualCheck allows manual triggering of a full batch
func (pc *PriceChecker) ManualCheck() {
	log.Println("Manual price check triggered")
	go pc.runBatch()
}

func (pc *PriceChecker) runBatch() {
	log.Println("Starting scheduled stale-price update")

	ctx, cancel := context.WithTimeout(context.Background(), pc.timeout)
	defer cancel()

	stats, err := pc.service.UpdateStalePrices(ctx, false)
	if err != nil {
		log.Printf("Failed to run stale-price update: %v", err)
		return
	}

	log.Printf("Scheduled update finished: %d processed, %d updated, %d drops, %d errors",
		stats.ItemsProcessed, stats.PricesUpdated, stats.PriceDrops, stats.Errors)
}

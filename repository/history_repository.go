package repository

import (
	"database/sql"
	"fmt"

	"pricewatch/database"
	"pricewatch/models"
)

type HistoryRepository struct{}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

// Latest returns the most recent price observation for an item, or nil if
// there is none
func (r *HistoryRepository) Latest(itemID int) (*models.PriceHistoryPoint, error) {
	query := `
		SELECT id, item_id, price, source, recorded_at
		FROM price_history
		WHERE item_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	var point models.PriceHistoryPoint
	err := database.DB.QueryRow(query, itemID).Scan(
		&point.ID, &point.ItemID, &point.Price, &point.Source, &point.RecordedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price point: %v", err)
	}

	return &point, nil
}

// Insert appends a price observation
func (r *HistoryRepository) Insert(point *models.PriceHistoryPoint) error {
	query := `
		INSERT INTO price_history (item_id, price, source, recorded_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := database.DB.Exec(query, point.ItemID, point.Price, point.Source, point.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to insert price history: %v", err)
	}

	return nil
}

// Points returns recent price observations for an item, newest first
func (r *HistoryRepository) Points(itemID, limit int) ([]models.PriceHistoryPoint, error) {
	if limit <= 0 {
		limit = 50 // default limit
	}

	query := `
		SELECT id, item_id, price, source, recorded_at
		FROM price_history
		WHERE item_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`

	rows, err := database.DB.Query(query, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %v", err)
	}
	defer rows.Close()

	var points []models.PriceHistoryPoint
	for rows.Next() {
		var point models.PriceHistoryPoint
		err := rows.Scan(&point.ID, &point.ItemID, &point.Price, &point.Source, &point.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price point: %v", err)
		}
		points = append(points, point)
	}

	return points, nil
}

// Stats aggregates min/max/avg price for an item over the last N days
func (r *HistoryRepository) Stats(itemID, days int) (*models.PriceHistoryStats, error) {
	if days <= 0 {
		days = 30
	}

	query := `
		SELECT COUNT(*), MIN(price), MAX(price), AVG(price)
		FROM price_history
		WHERE item_id = $1
		AND recorded_at > NOW() - make_interval(days => $2)
	`

	stats := models.PriceHistoryStats{ItemID: itemID, Days: days}
	err := database.DB.QueryRow(query, itemID, days).Scan(
		&stats.Count, &stats.MinPrice, &stats.MaxPrice, &stats.AvgPrice,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history stats: %v", err)
	}

	return &stats, nil
}

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pricewatch/database"
	"pricewatch/models"
)

// ErrItemNotFound is returned when an item id does not exist
var ErrItemNotFound = errors.New("item not found")

type ItemRepository struct{}

func NewItemRepository() *ItemRepository {
	return &ItemRepository{}
}

const itemColumns = `id, description, link, price, status, user_id, last_updated_by_id, image_url, price_updated_at, created_at`

func scanItem(row interface{ Scan(...interface{}) error }) (*models.Item, error) {
	var item models.Item
	err := row.Scan(
		&item.ID, &item.Description, &item.Link, &item.Price, &item.Status,
		&item.UserID, &item.LastUpdatedByID, &item.ImageURL,
		&item.PriceUpdatedAt, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ItemsNeedingRefresh returns linked items whose last price check is older
// than the cutoff. With forceAll, every linked item is returned.
func (r *ItemRepository) ItemsNeedingRefresh(cutoff time.Time, forceAll bool) ([]models.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE link IS NOT NULL AND link != ''
		AND (price_updated_at IS NULL OR price_updated_at < $1)
		ORDER BY price_updated_at ASC NULLS FIRST
	`
	args := []interface{}{cutoff}
	if forceAll {
		query = `
			SELECT ` + itemColumns + `
			FROM items
			WHERE link IS NOT NULL AND link != ''
			ORDER BY price_updated_at ASC NULLS FIRST
		`
		args = nil
	}

	rows, err := database.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get items needing refresh: %v", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %v", err)
		}
		items = append(items, *item)
	}

	return items, nil
}

// ItemByID returns a single item
func (r *ItemRepository) ItemByID(id int) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item, err := scanItem(database.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %v", err)
	}

	return item, nil
}

// UpdatePrice stores a new price and check timestamp for an item
func (r *ItemRepository) UpdatePrice(id int, price float64, checkedAt time.Time) error {
	query := `UPDATE items SET price = $2, price_updated_at = $3 WHERE id = $1`

	_, err := database.DB.Exec(query, id, price, checkedAt)
	if err != nil {
		return fmt.Errorf("failed to update item price: %v", err)
	}

	return nil
}

// TouchPriceCheckedAt bumps the check timestamp without changing the price,
// so failing URLs are not retried on every batch run
func (r *ItemRepository) TouchPriceCheckedAt(id int, checkedAt time.Time) error {
	query := `UPDATE items SET price_updated_at = $2 WHERE id = $1`

	_, err := database.DB.Exec(query, id, checkedAt)
	if err != nil {
		return fmt.Errorf("failed to touch price timestamp: %v", err)
	}

	return nil
}

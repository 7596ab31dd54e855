package repository

import (
	"fmt"
	"math"
	"time"

	"pricewatch/database"
	"pricewatch/models"
)

type ExtractionLogRepository struct{}

func NewExtractionLogRepository() *ExtractionLogRepository {
	return &ExtractionLogRepository{}
}

// Insert appends one extraction attempt. Rows are never updated.
func (r *ExtractionLogRepository) Insert(attempt *models.ExtractionAttempt) error {
	query := `
		INSERT INTO extraction_log (url, domain, success, price, method, error_kind, response_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	url := attempt.URL
	if len(url) > 2048 {
		url = url[:2048]
	}

	createdAt := attempt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := database.DB.Exec(query,
		url, attempt.Domain, attempt.Success, attempt.Price,
		attempt.Method, attempt.ErrorKind, attempt.ResponseTimeMs, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert extraction attempt: %v", err)
	}

	return nil
}

// SuccessRateByDomain aggregates extraction outcomes per domain since the
// given time, with the success rate as a percentage rounded to one decimal
func (r *ExtractionLogRepository) SuccessRateByDomain(since time.Time) ([]models.DomainSuccessRate, error) {
	query := `
		SELECT domain, COUNT(*), COUNT(*) FILTER (WHERE success)
		FROM extraction_log
		WHERE created_at > $1
		GROUP BY domain
		ORDER BY COUNT(*) DESC
	`

	rows, err := database.DB.Query(query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get success rates: %v", err)
	}
	defer rows.Close()

	var rates []models.DomainSuccessRate
	for rows.Next() {
		var rate models.DomainSuccessRate
		if err := rows.Scan(&rate.Domain, &rate.Total, &rate.Successes); err != nil {
			return nil, fmt.Errorf("failed to scan success rate: %v", err)
		}
		if rate.Total > 0 {
			rate.SuccessRate = math.Round(float64(rate.Successes)/float64(rate.Total)*1000) / 10
		}
		rates = append(rates, rate)
	}

	return rates, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"merchant-portal/internal/core/domain"

	"github.com/google/uuid"
)

// UsageLogRepo implements ports.UsageLogRepository.
type UsageLogRepo struct {
	pool Pool
}

// NewUsageLogRepo creates a new UsageLogRepo.
func NewUsageLogRepo(pool Pool) *UsageLogRepo {
	return &UsageLogRepo{pool: pool}
}

// Insert records one authenticated request.
func (r *UsageLogRepo) Insert(ctx context.Context, u *domain.APIKeyUsage) error {
	query := `INSERT INTO api_key_usage (id, api_key_id, endpoint, method, status_code, ip_address, user_agent, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.APIKeyID, u.Endpoint, u.Method, u.StatusCode,
		u.IPAddress, u.UserAgent, u.RequestID, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api key usage: %w", err)
	}
	return nil
}

// GetStats aggregates usage of one key since the given time: totals plus
// a per-day breakdown. A status code below 400 counts as successful.
func (r *UsageLogRepo) GetStats(ctx context.Context, apiKeyID uuid.UUID, since time.Time) (*domain.APIKeyUsageStats, error) {
	totalsQuery := `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status_code < 400) AS successful,
		COUNT(*) FILTER (WHERE status_code >= 400) AS errors
		FROM api_key_usage WHERE api_key_id = $1 AND created_at >= $2`

	stats := &domain.APIKeyUsageStats{}
	err := r.pool.QueryRow(ctx, totalsQuery, apiKeyID, since).Scan(
		&stats.TotalRequests, &stats.SuccessfulRequests, &stats.ErrorRequests,
	)
	if err != nil {
		return nil, fmt.Errorf("get usage totals: %w", err)
	}

	dailyQuery := `SELECT
		to_char(created_at::date, 'YYYY-MM-DD') AS day,
		COUNT(*) AS requests,
		COUNT(*) FILTER (WHERE status_code >= 400) AS errors
		FROM api_key_usage WHERE api_key_id = $1 AND created_at >= $2
		GROUP BY created_at::date ORDER BY day`

	rows, err := r.pool.Query(ctx, dailyQuery, apiKeyID, since)
	if err != nil {
		return nil, fmt.Errorf("get daily usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d domain.DailyUsage
		if err := rows.Scan(&d.Date, &d.Requests, &d.Errors); err != nil {
			return nil, fmt.Errorf("scan daily usage row: %w", err)
		}
		stats.Daily = append(stats.Daily, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily usage rows: %w", err)
	}
	return stats, nil
}

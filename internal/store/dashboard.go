package store

import (
	"context"

	"github.com/01moynul/storefront-api/internal/models"
)

func (s *Store) DashboardStats(ctx context.Context, lowStock int) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{OrdersByStatus: map[models.OrderStatus]int{}}

	// 1. Orders per status
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.OrdersByStatus[models.OrderStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 2. Revenue
	// We use COALESCE(..., 0) to get 0 instead of NULL when nothing was paid
	err = s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(total), 0) FROM orders WHERE payment_status = 'paid' AND status <> 'cancelled'",
	).Scan(&stats.Revenue)
	if err != nil {
		return nil, err
	}

	// 3. Active and low stock products
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN total_stock <= ? THEN 1 ELSE 0 END), 0) FROM products WHERE is_active = 1",
		lowStock,
	).Scan(&stats.ActiveProducts, &stats.LowStockProducts)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

package memory

import (
	"context"

	"github.com/01moynul/storefront-api/internal/models"
	"github.com/shopspring/decimal"
)

func (s *Store) DashboardStats(_ context.Context, lowStock int) (*models.DashboardStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &models.DashboardStats{
		OrdersByStatus: map[models.OrderStatus]int{},
		Revenue:        decimal.Zero,
	}
	for _, o := range s.orders {
		stats.OrdersByStatus[o.Status]++
		if o.PaymentStatus == models.PaymentPaid && o.Status != models.OrderCancelled {
			stats.Revenue = stats.Revenue.Add(o.Total)
		}
	}
	for _, p := range s.products {
		if !p.IsActive {
			continue
		}
		stats.ActiveProducts++
		if p.TotalStock <= lowStock {
			stats.LowStockProducts++
		}
	}
	return stats, nil
}

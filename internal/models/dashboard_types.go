package models

import "github.com/shopspring/decimal"

// DashboardStats is the KPI summary of the admin dashboard.
type DashboardStats struct {
	OrdersByStatus map[OrderStatus]int `json:"ordersByStatus"`
	// Revenue is the total of paid orders that were not cancelled.
	Revenue          decimal.Decimal `json:"revenue"`
	ActiveProducts   int             `json:"activeProducts"`
	LowStockProducts int             `json:"lowStockProducts"` // active, total stock at or below the threshold
}

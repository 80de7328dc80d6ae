package service

import (
	"fmt"
	"time"

	"warehouse-service/internal/models"
)

// formatOrderNumber renders ORD-YYYYMMDD-NNNN. Sequences above 9999 widen the suffix.
func formatOrderNumber(t time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%04d", t.Format("20060102"), seq)
}

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusCompleted, models.OrderStatusCancelled},
}

func canTransition(from, to models.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

package dto

import (
	"time"

	"warehouse-service/internal/models"
)

type CreateInventoryRequest struct {
	ProductID    string `json:"product_id" binding:"required,uuid"`
	Quantity     int    `json:"quantity" binding:"min=0"`
	ReorderLevel int    `json:"reorder_level" binding:"min=0"`
	Location     string `json:"location" binding:"max=255"`
}

// AdjustStockRequest: Quantity is a signed delta; a pointer so that 0 passes "required".
type AdjustStockRequest struct {
	Quantity *int   `json:"quantity" binding:"required"`
	Reason   string `json:"reason" binding:"max=500"`
}

type ListInventoryQuery struct {
	LowStock  string `form:"low_stock" binding:"omitempty,oneof=0 1 true false"`
	ProductID string `form:"product_id" binding:"omitempty,uuid"`
	Location  string `form:"location"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
}

func (q ListInventoryQuery) IsLowStock() bool {
	return q.LowStock == "1" || q.LowStock == "true"
}

type InventoryResponse struct {
	ID           string           `json:"id"`
	ProductID    string           `json:"product_id"`
	Quantity     int              `json:"quantity"`
	ReorderLevel int              `json:"reorder_level"`
	Location     string           `json:"location"`
	LowStock     bool             `json:"low_stock"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Product      *ProductResponse `json:"product,omitempty"`
}

func ToInventoryResponse(inv *models.Inventory) InventoryResponse {
	return InventoryResponse{
		ID:           inv.ID.String(),
		ProductID:    inv.ProductID.String(),
		Quantity:     inv.Quantity,
		ReorderLevel: inv.ReorderLevel,
		Location:     inv.Location,
		LowStock:     inv.IsLowStock(),
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
		Product:      ToProductResponse(inv.Product),
	}
}

func ToInventoryList(list []models.Inventory, total int64) ListResponse[InventoryResponse] {
	out := ListResponse[InventoryResponse]{Items: make([]InventoryResponse, 0, len(list)), Total: total}
	for i := range list {
		out.Items = append(out.Items, ToInventoryResponse(&list[i]))
	}
	return out
}

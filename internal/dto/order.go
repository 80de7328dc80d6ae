package dto

import (
	"time"

	"warehouse-service/internal/models"

	"github.com/shopspring/decimal"
)

type CreateOrderItemRequest struct {
	ProductID string          `json:"product_id" binding:"required,uuid"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	Price     decimal.Decimal `json:"price"`
}

type CreateOrderRequest struct {
	SupplierID  string                   `json:"supplier_id" binding:"required,uuid"`
	OrderNumber string                   `json:"order_number" binding:"omitempty,max=64"`
	Items       []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Notes       string                   `json:"notes" binding:"max=2000"`
}

type UpdateOrderRequest struct {
	Status *string `json:"status" binding:"omitempty,oneof=pending processing completed cancelled"`
	Notes  *string `json:"notes" binding:"omitempty,max=2000"`
}

type ListOrdersQuery struct {
	SupplierID string `form:"supplier_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=pending processing completed cancelled"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset     int    `form:"offset" binding:"omitempty,min=0"`
}

type SupplierResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type ProductResponse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
}

type OrderItemResponse struct {
	ID        string           `json:"id"`
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Price     decimal.Decimal  `json:"price"`
	Total     decimal.Decimal  `json:"total"`
	Product   *ProductResponse `json:"product,omitempty"`
}

type OrderResponse struct {
	ID          string              `json:"id"`
	OrderNumber string              `json:"order_number"`
	SupplierID  string              `json:"supplier_id"`
	Status      string              `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Notes       string              `json:"notes,omitempty"`
	FulfilledAt *time.Time          `json:"fulfilled_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Supplier    *SupplierResponse   `json:"supplier,omitempty"`
	Items       []OrderItemResponse `json:"items"`
}

type ListResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

func ToProductResponse(p *models.Product) *ProductResponse {
	if p == nil {
		return nil
	}
	return &ProductResponse{ID: p.ID.String(), Name: p.Name, SKU: p.SKU, Price: p.Price}
}

func ToOrderResponse(o *models.Order) OrderResponse {
	resp := OrderResponse{
		ID:          o.ID.String(),
		OrderNumber: o.OrderNumber,
		SupplierID:  o.SupplierID.String(),
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		Notes:       o.Notes,
		FulfilledAt: o.FulfilledAt,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		Items:       make([]OrderItemResponse, 0, len(o.Items)),
	}
	if o.Supplier != nil {
		resp.Supplier = &SupplierResponse{
			ID:    o.Supplier.ID.String(),
			Name:  o.Supplier.Name,
			Email: o.Supplier.Email,
			Phone: o.Supplier.Phone,
		}
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:        it.ID.String(),
			ProductID: it.ProductID.String(),
			Quantity:  it.Quantity,
			Price:     it.Price,
			Total:     it.Total(),
			Product:   ToProductResponse(it.Product),
		})
	}
	return resp
}

func ToOrderList(list []models.Order, total int64) ListResponse[OrderResponse] {
	out := ListResponse[OrderResponse]{Items: make([]OrderResponse, 0, len(list)), Total: total}
	for i := range list {
		out.Items = append(out.Items, ToOrderResponse(&list[i]))
	}
	return out
}

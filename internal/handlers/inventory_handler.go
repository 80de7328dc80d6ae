package handlers

import (
	"net/http"

	"warehouse-service/internal/dto"
	"warehouse-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	inventory service.InventoryService
	log       *zap.Logger
}

func NewInventoryHandler(inventory service.InventoryService, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, log: log}
}

// Create godoc
// @Summary Create an inventory record
// @Security BearerAuth
// @Tags inventory
// @Accept json
// @Produce json
// @Param inventory body dto.CreateInventoryRequest true "Record"
// @Success 201 {object} dto.InventoryResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /api/v1/inventory [post]
func (h *InventoryHandler) Create(c *gin.Context) {
	var req dto.CreateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, "create inventory", err)
		return
	}

	inv, err := h.inventory.CreateInventory(c.Request.Context(), service.CreateInventoryInput{
		ProductID:    uuid.MustParse(req.ProductID),
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
		Location:     req.Location,
	})
	if err != nil {
		writeError(c, h.log, "create inventory", err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToInventoryResponse(inv))
}

// Get godoc
// @Summary Get an inventory record
// @Security BearerAuth
// @Tags inventory
// @Produce json
// @Param id path string true "Inventory ID"
// @Success 200 {object} dto.InventoryResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/inventory/{id} [get]
func (h *InventoryHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	inv, err := h.inventory.GetInventory(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, "get inventory", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToInventoryResponse(inv))
}

// List godoc
// @Summary List inventory records
// @Description low_stock=1 without other filters returns the full low-stock set
// @Security BearerAuth
// @Tags inventory
// @Produce json
// @Param low_stock query string false "Only records at or below reorder level"
// @Param product_id query string false "Product ID"
// @Param location query string false "Location"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.ListResponse[dto.InventoryResponse]
// @Router /api/v1/inventory [get]
func (h *InventoryHandler) List(c *gin.Context) {
	var q dto.ListInventoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, h.log, "list inventory", err)
		return
	}
	ctx := c.Request.Context()

	if q.IsLowStock() && q.ProductID == "" && q.Location == "" && q.Limit == 0 && q.Offset == 0 {
		items, err := h.inventory.CheckLowStock(ctx)
		if err != nil {
			writeError(c, h.log, "check low stock", err)
			return
		}
		c.JSON(http.StatusOK, dto.ToInventoryList(items, int64(len(items))))
		return
	}

	f := service.InventoryFilter{
		ProductID: optionalUUID(q.ProductID),
		LowStock:  q.IsLowStock(),
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	if q.Location != "" {
		f.Location = &q.Location
	}
	list, total, err := h.inventory.ListInventory(ctx, f)
	if err != nil {
		writeError(c, h.log, "list inventory", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToInventoryList(list, total))
}

// Adjust godoc
// @Summary Adjust stock quantity
// @Description Applies a signed delta; the result never drops below zero
// @Security BearerAuth
// @Tags inventory
// @Accept json
// @Produce json
// @Param id path string true "Inventory ID"
// @Param adjustment body dto.AdjustStockRequest true "Delta"
// @Success 200 {object} dto.InventoryResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/inventory/{id}/adjust [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, "adjust stock", err)
		return
	}

	inv, err := h.inventory.AdjustStock(c.Request.Context(), id, *req.Quantity, req.Reason)
	if err != nil {
		writeError(c, h.log, "adjust stock", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToInventoryResponse(inv))
}

// Delete godoc
// @Summary Delete an inventory record
// @Security BearerAuth
// @Tags inventory
// @Param id path string true "Inventory ID"
// @Success 204
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/inventory/{id} [delete]
func (h *InventoryHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.inventory.DeleteInventory(c.Request.Context(), id); err != nil {
		writeError(c, h.log, "delete inventory", err)
		return
	}
	c.Status(http.StatusNoContent)
}

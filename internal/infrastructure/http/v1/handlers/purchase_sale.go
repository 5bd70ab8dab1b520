package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"mercatus/internal/core/apperror"
	"mercatus/internal/domain/attribution"
	"mercatus/internal/domain/hierarchy"
	"mercatus/internal/domain/purchasesale"
	"mercatus/internal/infrastructure/http/v1/dto"
)

// PurchaseSaleHandler handles the purchase-vs-sale drill-down endpoints.
type PurchaseSaleHandler struct {
	*BaseHandler
	service *purchasesale.Service
}

// NewPurchaseSaleHandler creates a new handler.
func NewPurchaseSaleHandler(base *BaseHandler, service *purchasesale.Service) *PurchaseSaleHandler {
	return &PurchaseSaleHandler{BaseHandler: base, service: service}
}

// Sections handles GET /purchase-sale/sections
func (h *PurchaseSaleHandler) Sections(c *gin.Context) {
	h.nodes(c, hierarchy.LevelSection, h.service.Sections)
}

// Groups handles GET /purchase-sale/groups
func (h *PurchaseSaleHandler) Groups(c *gin.Context) {
	h.nodes(c, hierarchy.LevelGroup, h.service.Groups)
}

// SubGroups handles GET /purchase-sale/subgroups
func (h *PurchaseSaleHandler) SubGroups(c *gin.Context) {
	h.nodes(c, hierarchy.LevelSubGroup, h.service.SubGroups)
}

// Items handles GET /purchase-sale/items
func (h *PurchaseSaleHandler) Items(c *gin.Context) {
	h.nodes(c, hierarchy.LevelItem, h.service.Items)
}

func (h *PurchaseSaleHandler) nodes(c *gin.Context, level hierarchy.Level,
	query func(ctx context.Context, f purchasesale.FilterSpec) ([]hierarchy.NodeResult, error)) {
	var req dto.PurchaseSaleRequest
	if !h.BindQuery(c, &req) {
		return
	}
	filter, err := req.ToFilterSpec()
	if err != nil {
		h.Error(c, err)
		return
	}

	rows, err := query(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromNodeResults(level, rows))
}

// Totals handles GET /purchase-sale/totals
func (h *PurchaseSaleHandler) Totals(c *gin.Context) {
	var req dto.PurchaseSaleRequest
	if !h.BindQuery(c, &req) {
		return
	}
	filter, err := req.ToFilterSpec()
	if err != nil {
		h.Error(c, err)
		return
	}

	total, err := h.service.Totals(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromNodeResult(total))
}

// LoanDetail handles GET /purchase-sale/loan-detail
func (h *PurchaseSaleHandler) LoanDetail(c *gin.Context) {
	var req dto.PurchaseSaleRequest
	if !h.BindQuery(c, &req) {
		return
	}
	filter, err := req.ToFilterSpec()
	if err != nil {
		h.Error(c, err)
		return
	}

	level, err := hierarchy.ParseLevel(c.DefaultQuery("level", "section"))
	if err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return
	}
	dir, ok := attribution.ParseDirection(c.Query("direction"))
	if !ok {
		h.Error(c, apperror.NewValidation("direction must be lent or borrowed"))
		return
	}
	productID := h.ParseIntQuery(c, "productId", 0)

	detail, err := h.service.LoanDetail(c.Request.Context(), filter, level, dir, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLoanDetail(detail))
}

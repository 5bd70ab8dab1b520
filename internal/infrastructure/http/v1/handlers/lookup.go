package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mercatus/internal/domain/purchasesale"
	"mercatus/internal/infrastructure/http/v1/dto"
)

// LookupHandler serves the flat id/description lists.
type LookupHandler struct {
	*BaseHandler
	lookups *purchasesale.Lookups
}

// NewLookupHandler creates a new lookup handler.
func NewLookupHandler(base *BaseHandler, lookups *purchasesale.Lookups) *LookupHandler {
	return &LookupHandler{BaseHandler: base, lookups: lookups}
}

// Sections handles GET /lookups/sections
func (h *LookupHandler) Sections(c *gin.Context) {
	items, err := h.lookups.Sections(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLookupItems(items))
}

// Groups handles GET /lookups/groups
func (h *LookupHandler) Groups(c *gin.Context) {
	sectionID := h.ParseIntQuery(c, "sectionId", 0)
	items, err := h.lookups.Groups(c.Request.Context(), sectionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLookupItems(items))
}

// SubGroups handles GET /lookups/subgroups
func (h *LookupHandler) SubGroups(c *gin.Context) {
	sectionID := h.ParseIntQuery(c, "sectionId", 0)
	groupID := h.ParseIntQuery(c, "groupId", 0)
	items, err := h.lookups.SubGroups(c.Request.Context(), sectionID, groupID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLookupItems(items))
}

// Stores handles GET /lookups/stores
func (h *LookupHandler) Stores(c *gin.Context) {
	items, err := h.lookups.Stores(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLookupItems(items))
}

// Buyers handles GET /lookups/buyers
func (h *LookupHandler) Buyers(c *gin.Context) {
	items, err := h.lookups.Buyers(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLookupItems(items))
}

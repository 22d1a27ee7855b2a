package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/loungeaccess-backend/customer"
)

type pageResponse struct {
	Customers  []customer.Customer `json:"customers"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
	TotalItems int                 `json:"totalItems"`
}

func (a *API) customersHandler(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "page must be a number"})
		return
	}
	pageSize, err := intQuery(c, "pageSize", customer.DefaultPageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "pageSize must be a number"})
		return
	}

	p, err := a.cr.Paginate(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		respondError(c, err, "failed to list customers")
		return
	}

	c.JSON(http.StatusOK, pageResponse{
		Customers:  p.Customers,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		TotalItems: p.TotalItems,
	})
}

func (a *API) createCustomerHandler(c *gin.Context) {
	var form customer.FormData
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Request body must be a customer form"})
		return
	}

	created, err := a.cr.Create(c.Request.Context(), form)
	if err != nil {
		respondError(c, err, "failed to create customer")
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (a *API) customerHandler(c *gin.Context) {
	found, err := a.cr.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to get customer")
		return
	}

	c.JSON(http.StatusOK, found)
}

func (a *API) updateCustomerHandler(c *gin.Context) {
	var form customer.FormData
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Request body must be a customer form"})
		return
	}

	updated, err := a.cr.Update(c.Request.Context(), c.Param("id"), form)
	if err != nil {
		respondError(c, err, "failed to update customer")
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (a *API) deleteCustomerHandler(c *gin.Context) {
	if err := a.cr.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "failed to delete customer")
		return
	}

	c.Status(http.StatusNoContent)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

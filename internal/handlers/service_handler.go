package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
)

// ServiceHandler handles service catalog HTTP requests
type ServiceHandler struct {
	services *database.ServiceRepository
}

// NewServiceHandler creates a new service handler
func NewServiceHandler(services *database.ServiceRepository) *ServiceHandler {
	return &ServiceHandler{services: services}
}

// List handles GET /api/v1/services?active=true
func (h *ServiceHandler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	services, err := h.services.List(activeOnly)
	if err != nil {
		internalError(c, "Failed to list services")
		return
	}

	c.JSON(http.StatusOK, gin.H{"services": services})
}

// Get handles GET /api/v1/services/:id
func (h *ServiceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid service id")
		return
	}

	service, err := h.services.GetByID(id)
	if err != nil {
		notFound(c, "Service not found")
		return
	}

	c.JSON(http.StatusOK, service)
}

// Create handles POST /api/v1/services
func (h *ServiceHandler) Create(c *gin.Context) {
	var req models.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := validateStaffIDs(req.StaffIDs); err != nil {
		badRequest(c, err.Error())
		return
	}

	service := &models.Service{
		Name:            req.Name,
		Description:     models.NewNullString(req.Description),
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		StaffIDs:        pq.StringArray(req.StaffIDs),
		IsActive:        true,
	}

	if err := h.services.Create(service); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			conflict(c, "A service with this name already exists")
			return
		}
		internalError(c, "Failed to create service")
		return
	}

	c.JSON(http.StatusCreated, service)
}

// Update handles PUT /api/v1/services/:id
func (h *ServiceHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid service id")
		return
	}

	var req models.UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	service, err := h.services.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			notFound(c, "Service not found")
			return
		}
		internalError(c, "Failed to load service")
		return
	}

	if req.Name != nil {
		service.Name = *req.Name
	}
	if req.Description != nil {
		service.Description = models.NewNullString(*req.Description)
	}
	if req.Price != nil {
		service.Price = *req.Price
	}
	if req.DurationMinutes != nil {
		service.DurationMinutes = *req.DurationMinutes
	}
	if req.StaffIDs != nil {
		if err := validateStaffIDs(*req.StaffIDs); err != nil {
			badRequest(c, err.Error())
			return
		}
		service.StaffIDs = pq.StringArray(*req.StaffIDs)
	}
	if req.IsActive != nil {
		service.IsActive = *req.IsActive
	}

	if err := h.services.Update(service); err != nil {
		internalError(c, "Failed to update service")
		return
	}

	c.JSON(http.StatusOK, service)
}

// Deactivate handles DELETE /api/v1/services/:id
func (h *ServiceHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid service id")
		return
	}

	if err := h.services.Deactivate(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			notFound(c, "Service not found")
			return
		}
		internalError(c, "Failed to deactivate service")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Service deactivated"})
}

func validateStaffIDs(ids []string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return errors.New("staff_ids must be valid uuids")
		}
	}
	return nil
}

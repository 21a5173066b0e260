package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"solamar-backend/config"
	"solamar-backend/models"
	"solamar-backend/utils"
)

// CreateVisitInput defines the expected JSON structure for scheduling a visit
type CreateVisitInput struct {
	ClientID       uuid.UUID   `json:"clientId" binding:"required"`
	ScheduledAt    time.Time   `json:"scheduledAt" binding:"required"`
	CompletedAt    *time.Time  `json:"completedAt"`
	ServiceIDs     []uuid.UUID `json:"serviceIds" binding:"required,min=1"`
	TimeToComplete *int        `json:"timeToComplete" binding:"omitempty,min=0"`
	Notes          string      `json:"notes"`
}

// UpdateVisitInput defines the expected JSON structure for editing a visit.
// Status and billing fields have their own endpoints and are never touched here.
type UpdateVisitInput struct {
	ScheduledAt    *time.Time   `json:"scheduledAt"`
	CompletedAt    *time.Time   `json:"completedAt"`
	ServiceIDs     *[]uuid.UUID `json:"serviceIds"`
	TimeToComplete *int         `json:"timeToComplete" binding:"omitempty,min=0"`
	Notes          *string      `json:"notes"`
}

type UpdateVisitStatusInput struct {
	Status string `json:"status" binding:"required,oneof=SCHEDULED IN_PROGRESS COMPLETED CANCELLED"`
}

// snapshotServices resolves catalog services into the snapshots stored on the
// visit, and their summed default duration.
func snapshotServices(serviceIDs []uuid.UUID) (models.ServiceSnapshots, int, error) {
	snapshots := make(models.ServiceSnapshots, 0, len(serviceIDs))
	estimated := 0
	for _, id := range serviceIDs {
		var service models.Service
		if err := config.DB.Where("id = ?", id).First(&service).Error; err != nil {
			return nil, 0, err
		}
		snapshots = append(snapshots, models.ServiceSnapshot{
			ID:              service.ID,
			Name:            service.Name,
			DefaultDuration: service.DefaultDuration,
		})
		estimated += service.DefaultDuration
	}
	return snapshots, estimated, nil
}

// CreateVisit schedules a new visit for a client
func CreateVisit(c *gin.Context) {
	var input CreateVisitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var client models.Client
	if err := config.DB.Where("id = ?", input.ClientID).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusBadRequest, "Client not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	snapshots, estimated, err := snapshotServices(input.ServiceIDs)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusBadRequest, "Service not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	visit := models.Visit{
		ClientID:          client.ID,
		ClientName:        client.FullName(),
		ScheduledAt:       input.ScheduledAt,
		CompletedAt:       input.CompletedAt,
		Services:          snapshots,
		EstimatedDuration: estimated,
		TimeToComplete:    input.TimeToComplete,
		Status:            models.VisitScheduled,
		BillingStatus:     models.BillingUnbilled,
		Notes:             input.Notes,
	}

	if err := config.DB.Create(&visit).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create visit")
		return
	}

	c.JSON(http.StatusCreated, visit)
}

// GetVisits retrieves visits, optionally filtered by client, status and search text
func GetVisits(c *gin.Context) {
	query := config.DB.Model(&models.Visit{})

	if clientID := c.Query("clientId"); clientID != "" {
		clientUUID, err := uuid.Parse(clientID)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid client ID format")
			return
		}
		query = query.Where("client_id = ?", clientUUID)
	}
	if status := c.Query("status"); status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}
	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		like := "%" + search + "%"
		query = query.Where("lower(client_name) LIKE ? OR lower(status) LIKE ? OR lower(notes) LIKE ?",
			like, like, like)
	}

	var visits []models.Visit
	if err := query.Order("scheduled_at DESC").Find(&visits).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve visits")
		return
	}

	c.JSON(http.StatusOK, visits)
}

// GetVisit retrieves a specific visit by ID
func GetVisit(c *gin.Context) {
	visitUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid visit ID format")
		return
	}

	var visit models.Visit
	if err := config.DB.Where("id = ?", visitUUID).First(&visit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Visit not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, visit)
}

// UpdateVisit edits a visit's schedule, services, duration or notes
func UpdateVisit(c *gin.Context) {
	visitUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid visit ID format")
		return
	}

	var input UpdateVisitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var visit models.Visit
	if err := config.DB.Where("id = ?", visitUUID).First(&visit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Visit not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.ScheduledAt != nil {
		visit.ScheduledAt = *input.ScheduledAt
	}
	if input.CompletedAt != nil {
		visit.CompletedAt = input.CompletedAt
	}
	if input.ServiceIDs != nil {
		snapshots, estimated, err := snapshotServices(*input.ServiceIDs)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.RespondWithError(c, http.StatusBadRequest, "Service not found")
			} else {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			}
			return
		}
		visit.Services = snapshots
		visit.EstimatedDuration = estimated
	}
	if input.TimeToComplete != nil {
		visit.TimeToComplete = input.TimeToComplete
	}
	if input.Notes != nil {
		visit.Notes = *input.Notes
	}

	if err := config.DB.Save(&visit).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update visit")
		return
	}

	c.JSON(http.StatusOK, visit)
}

// UpdateVisitStatus advances a visit through its lifecycle. Completing a visit
// stamps the completion time if it is not set yet.
func UpdateVisitStatus(c *gin.Context) {
	visitUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid visit ID format")
		return
	}

	var input UpdateVisitStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var visit models.Visit
	if err := config.DB.Where("id = ?", visitUUID).First(&visit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Visit not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	visit.Status = input.Status
	if input.Status == models.VisitCompleted && visit.CompletedAt == nil {
		now := time.Now()
		visit.CompletedAt = &now
	}

	if err := config.DB.Save(&visit).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update visit status")
		return
	}

	c.JSON(http.StatusOK, visit)
}

// DeleteVisit removes a visit. Billed visits cannot be deleted; remove them
// from their invoice first.
func DeleteVisit(c *gin.Context) {
	visitUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid visit ID format")
		return
	}

	var visit models.Visit
	if err := config.DB.Where("id = ?", visitUUID).First(&visit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Visit not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if visit.BillingStatus == models.BillingBilled {
		utils.RespondWithError(c, http.StatusConflict, "Visit is billed; remove it from its invoice first")
		return
	}

	if err := config.DB.Delete(&visit).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete visit")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Visit deleted successfully"})
}

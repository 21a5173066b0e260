// controllers/campaign.go
package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"solamar-backend/config"
	"solamar-backend/models"
	"solamar-backend/services"
	"solamar-backend/utils"
)

// CreateCampaignInput defines the expected JSON structure for creating a campaign
type CreateCampaignInput struct {
	Name        string     `json:"name" binding:"required"`
	Message     string     `json:"message" binding:"required"`
	Channel     string     `json:"channel" binding:"omitempty,oneof=sms whatsapp"`
	Status      string     `json:"status" binding:"omitempty,oneof=draft active completed"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

// UpdateCampaignInput defines the expected JSON structure for updating a campaign
type UpdateCampaignInput struct {
	Name        *string    `json:"name"`
	Message     *string    `json:"message"`
	Channel     *string    `json:"channel" binding:"omitempty,oneof=sms whatsapp"`
	Status      *string    `json:"status" binding:"omitempty,oneof=draft active completed"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

// CreateCampaign creates a new marketing campaign
func CreateCampaign(c *gin.Context) {
	var input CreateCampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	channel := input.Channel
	if channel == "" {
		channel = "sms"
	}
	status := input.Status
	if status == "" {
		status = models.CampaignDraft
	}

	campaign := models.MarketingCampaign{
		Name:        input.Name,
		Message:     input.Message,
		Channel:     channel,
		Status:      status,
		ScheduledAt: input.ScheduledAt,
	}

	if err := config.DB.Create(&campaign).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create campaign")
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

// GetCampaigns retrieves all campaigns, optionally filtered by status
func GetCampaigns(c *gin.Context) {
	query := config.DB.Model(&models.MarketingCampaign{})
	if status := c.Query("status"); status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}

	var campaigns []models.MarketingCampaign
	if err := query.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve campaigns")
		return
	}

	c.JSON(http.StatusOK, campaigns)
}

// GetCampaign retrieves a specific campaign with its send log
func GetCampaign(c *gin.Context) {
	campaignUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid campaign ID format")
		return
	}

	var campaign models.MarketingCampaign
	if err := config.DB.Where("id = ?", campaignUUID).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Campaign not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	var logs []models.CampaignLog
	if err := config.DB.Where("campaign_id = ?", campaign.ID).
		Order("sent_at DESC").Find(&logs).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"campaign": campaign, "logs": logs})
}

// UpdateCampaign updates an existing campaign
func UpdateCampaign(c *gin.Context) {
	campaignUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid campaign ID format")
		return
	}

	var input UpdateCampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var campaign models.MarketingCampaign
	if err := config.DB.Where("id = ?", campaignUUID).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Campaign not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		campaign.Name = *input.Name
	}
	if input.Message != nil {
		campaign.Message = *input.Message
	}
	if input.Channel != nil {
		campaign.Channel = *input.Channel
	}
	if input.Status != nil {
		campaign.Status = *input.Status
	}
	if input.ScheduledAt != nil {
		campaign.ScheduledAt = input.ScheduledAt
	}

	if err := config.DB.Save(&campaign).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update campaign")
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// DeleteCampaign deletes a campaign and its send log
func DeleteCampaign(c *gin.Context) {
	campaignUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid campaign ID format")
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("campaign_id = ?", campaignUUID).
			Delete(&models.CampaignLog{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", campaignUUID).Delete(&models.MarketingCampaign{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Campaign not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete campaign")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Campaign deleted successfully"})
}

// SendCampaign dispatches a campaign to all active clients immediately
func SendCampaign(c *gin.Context) {
	campaignUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid campaign ID format")
		return
	}

	campaignService := services.NewCampaignService(config.DB)
	if err := campaignService.SendCampaign(campaignUUID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Campaign not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to send campaign")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Campaign sent"})
}

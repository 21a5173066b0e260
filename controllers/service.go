// controllers/service.go
package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"solamar-backend/config"
	"solamar-backend/models"
	"solamar-backend/utils"
)

// CreateServiceInput defines the expected JSON structure for creating a service
type CreateServiceInput struct {
	Name            string     `json:"name" binding:"required"`
	Description     string     `json:"description"`
	DefaultDuration int        `json:"defaultDuration" binding:"min=0"` // in minutes
	CategoryID      *uuid.UUID `json:"categoryId"`
}

// UpdateServiceInput defines the expected JSON structure for updating a service
type UpdateServiceInput struct {
	Name            *string    `json:"name"`
	Description     *string    `json:"description"`
	DefaultDuration *int       `json:"defaultDuration"`
	CategoryID      *uuid.UUID `json:"categoryId"`
	IsActive        *bool      `json:"isActive"`
}

type CategoryInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// CreateService creates a new catalog service
func CreateService(c *gin.Context) {
	var input CreateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if input.CategoryID != nil {
		var category models.ServiceCategory
		if err := config.DB.Where("id = ?", *input.CategoryID).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.RespondWithError(c, http.StatusBadRequest, "Category not found")
			} else {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			}
			return
		}
	}

	service := models.Service{
		Name:            input.Name,
		Description:     input.Description,
		DefaultDuration: input.DefaultDuration,
		CategoryID:      input.CategoryID,
		IsActive:        true,
	}

	if err := config.DB.Create(&service).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create service")
		return
	}

	c.JSON(http.StatusCreated, service)
}

// GetServices retrieves all catalog services
func GetServices(c *gin.Context) {
	query := config.DB.Model(&models.Service{})
	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	var services []models.Service
	if err := query.Order("name").Find(&services).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve services")
		return
	}

	c.JSON(http.StatusOK, services)
}

// GetService retrieves a specific service by ID
func GetService(c *gin.Context) {
	serviceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid service ID format")
		return
	}

	var service models.Service
	if err := config.DB.Where("id = ?", serviceUUID).First(&service).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, service)
}

// UpdateService updates an existing service
func UpdateService(c *gin.Context) {
	serviceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid service ID format")
		return
	}

	var input UpdateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var service models.Service
	if err := config.DB.Where("id = ?", serviceUUID).First(&service).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		service.Name = *input.Name
	}
	if input.Description != nil {
		service.Description = *input.Description
	}
	if input.DefaultDuration != nil {
		service.DefaultDuration = *input.DefaultDuration
	}
	if input.CategoryID != nil {
		service.CategoryID = input.CategoryID
	}
	if input.IsActive != nil {
		service.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&service).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update service")
		return
	}

	c.JSON(http.StatusOK, service)
}

// DeleteService deletes a service from the catalog
func DeleteService(c *gin.Context) {
	serviceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid service ID format")
		return
	}

	result := config.DB.Where("id = ?", serviceUUID).Delete(&models.Service{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete service")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Service deleted successfully"})
}

// CreateCategory creates a service category
func CreateCategory(c *gin.Context) {
	var input CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	category := models.ServiceCategory{
		Name:        input.Name,
		Description: input.Description,
		Icon:        input.Icon,
	}

	if err := config.DB.Create(&category).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create category")
		return
	}

	c.JSON(http.StatusCreated, category)
}

// GetCategories retrieves all service categories
func GetCategories(c *gin.Context) {
	var categories []models.ServiceCategory
	if err := config.DB.Order("name").Find(&categories).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve categories")
		return
	}

	c.JSON(http.StatusOK, categories)
}

// UpdateCategory updates a service category
func UpdateCategory(c *gin.Context) {
	categoryUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	var input CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var category models.ServiceCategory
	if err := config.DB.Where("id = ?", categoryUUID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Category not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	category.Name = input.Name
	category.Description = input.Description
	category.Icon = input.Icon

	if err := config.DB.Save(&category).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update category")
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteCategory deletes a category and detaches its services in one
// transaction, so no service is left pointing at a missing category.
func DeleteCategory(c *gin.Context) {
	categoryUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Service{}).
			Where("category_id = ?", categoryUUID).
			Update("category_id", nil).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", categoryUUID).Delete(&models.ServiceCategory{})
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
			utils.RespondWithError(c, http.StatusNotFound, "Category not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete category")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}

// defaultServices is the starter catalog installed by SeedServices.
var defaultServices = []models.Service{
	{Name: "Home Check", Description: "Interior and exterior walkthrough", DefaultDuration: 30, IsActive: true},
	{Name: "Mail Pickup", Description: "Collect and hold mail and packages", DefaultDuration: 15, IsActive: true},
	{Name: "Plant Watering", Description: "Indoor and patio plants", DefaultDuration: 20, IsActive: true},
	{Name: "Pet Visit", Description: "Feeding, water and a short walk", DefaultDuration: 45, IsActive: true},
	{Name: "Storm Prep", Description: "Secure patio furniture and check seals", DefaultDuration: 60, IsActive: true},
	{Name: "Contractor Access", Description: "Let in and supervise scheduled work", DefaultDuration: 90, IsActive: true},
}

// SeedServices installs the default catalog in one transaction. Does nothing
// if any service already exists.
func SeedServices(c *gin.Context) {
	var count int64
	if err := config.DB.Model(&models.Service{}).Count(&count).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if count > 0 {
		utils.RespondWithError(c, http.StatusConflict, "Services already exist")
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		for i := range defaultServices {
			service := defaultServices[i]
			if err := tx.Create(&service).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to seed services")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Default services created successfully"})
}

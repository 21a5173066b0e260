package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"solamar-backend/config"
	"solamar-backend/models"
	"solamar-backend/utils"
)

// accountCodeSeed is the first code handed out when the directory is empty.
const accountCodeSeed = 100000

// CreateClientInput defines the expected JSON structure for creating a client
type CreateClientInput struct {
	FirstName string     `json:"firstName" binding:"required"`
	LastName  string     `json:"lastName" binding:"required"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Street    string     `json:"street"`
	City      string     `json:"city"`
	State     string     `json:"state"`
	Zip       string     `json:"zip"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	Notes     string     `json:"notes"`
}

// UpdateClientInput defines the expected JSON structure for updating a client
type UpdateClientInput struct {
	FirstName *string    `json:"firstName"`
	LastName  *string    `json:"lastName"`
	Email     *string    `json:"email"`
	Phone     *string    `json:"phone"`
	Street    *string    `json:"street"`
	City      *string    `json:"city"`
	State     *string    `json:"state"`
	Zip       *string    `json:"zip"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	IsActive  *bool      `json:"isActive"`
	Notes     *string    `json:"notes"`
}

// nextAccountCode allocates the next "A" + 6 digit code from the current
// maximum, inside the caller's transaction. Monotonic allocation instead of
// the old random-and-retry scheme, so there is no collision path at all.
func nextAccountCode(tx *gorm.DB) (string, error) {
	var codes []string
	if err := tx.Model(&models.Client{}).
		Where("account_code LIKE ?", "A%").
		Pluck("account_code", &codes).Error; err != nil {
		return "", err
	}

	next := accountCodeSeed
	for _, code := range codes {
		n, err := strconv.Atoi(strings.TrimPrefix(code, "A"))
		if err != nil {
			return "", fmt.Errorf("malformed account code in storage: %q", code)
		}
		if n+1 > next {
			next = n + 1
		}
	}
	if next > 999999 {
		return "", errors.New("account code range exhausted")
	}

	return fmt.Sprintf("A%06d", next), nil
}

// CreateClient creates a new client and assigns its account code
func CreateClient(c *gin.Context) {
	var input CreateClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	client := models.Client{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
		Street:    input.Street,
		City:      input.City,
		State:     strings.ToUpper(input.State),
		Zip:       input.Zip,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		IsActive:  true,
		Notes:     input.Notes,
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		code, err := nextAccountCode(tx)
		if err != nil {
			return err
		}
		client.AccountCode = code
		return tx.Create(&client).Error
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create client")
		return
	}

	c.JSON(http.StatusCreated, client)
}

// GetClients retrieves all clients, with optional free-text search
func GetClients(c *gin.Context) {
	query := config.DB.Model(&models.Client{})

	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		like := "%" + search + "%"
		query = query.Where(
			"lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR lower(email) LIKE ? OR lower(account_code) LIKE ? OR lower(street) LIKE ? OR lower(city) LIKE ?",
			like, like, like, like, like, like)
	}

	var clients []models.Client
	if err := query.Order("created_at DESC").Find(&clients).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve clients")
		return
	}

	c.JSON(http.StatusOK, clients)
}

// GetClient retrieves a specific client by ID
func GetClient(c *gin.Context) {
	clientUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid client ID format")
		return
	}

	var client models.Client
	if err := config.DB.Where("id = ?", clientUUID).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Client not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, client)
}

// UpdateClient updates an existing client. The account code is never touched.
func UpdateClient(c *gin.Context) {
	clientUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid client ID format")
		return
	}

	var input UpdateClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var client models.Client
	if err := config.DB.Where("id = ?", clientUUID).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Client not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.FirstName != nil {
		client.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		client.LastName = *input.LastName
	}
	if input.Email != nil {
		client.Email = *input.Email
	}
	if input.Phone != nil {
		if *input.Phone != "" && !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
			return
		}
		client.Phone = *input.Phone
	}
	if input.Street != nil {
		client.Street = *input.Street
	}
	if input.City != nil {
		client.City = *input.City
	}
	if input.State != nil {
		client.State = strings.ToUpper(*input.State)
	}
	if input.Zip != nil {
		client.Zip = *input.Zip
	}
	if input.StartDate != nil {
		client.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		client.EndDate = input.EndDate
	}
	if input.IsActive != nil {
		client.IsActive = *input.IsActive
	}
	if input.Notes != nil {
		client.Notes = *input.Notes
	}

	if err := config.DB.Save(&client).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update client")
		return
	}

	c.JSON(http.StatusOK, client)
}

// DeleteClient deletes a client. Deletion is refused while any visit still
// references the client; the visits must be removed or reassigned first.
func DeleteClient(c *gin.Context) {
	clientUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid client ID format")
		return
	}

	var visitCount int64
	if err := config.DB.Model(&models.Visit{}).
		Where("client_id = ?", clientUUID).Count(&visitCount).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if visitCount > 0 {
		utils.RespondWithError(c, http.StatusConflict,
			"Client has visits on record; delete or reassign them first")
		return
	}

	result := config.DB.Where("id = ?", clientUUID).Delete(&models.Client{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete client")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Client not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Client deleted successfully"})
}

package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"solamar-backend/config"
	"solamar-backend/models"
)

// setupTest opens a per-test in-memory database, points the global handle at
// it, and returns a router with every API route mounted without auth.
func setupTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.ServiceCategory{},
		&models.Service{},
		&models.Visit{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.MarketingCampaign{},
		&models.CampaignLog{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	config.DB = db

	r := gin.New()
	api := r.Group("/api")
	{
		clients := api.Group("/clients")
		clients.POST("", CreateClient)
		clients.GET("", GetClients)
		clients.GET("/:id", GetClient)
		clients.PUT("/:id", UpdateClient)
		clients.DELETE("/:id", DeleteClient)

		services := api.Group("/services")
		services.POST("", CreateService)
		services.GET("", GetServices)
		services.POST("/seed", SeedServices)
		services.GET("/:id", GetService)
		services.PUT("/:id", UpdateService)
		services.DELETE("/:id", DeleteService)

		visits := api.Group("/visits")
		visits.POST("", CreateVisit)
		visits.GET("", GetVisits)
		visits.GET("/:id", GetVisit)
		visits.PUT("/:id", UpdateVisit)
		visits.PUT("/:id/status", UpdateVisitStatus)
		visits.DELETE("/:id", DeleteVisit)

		invoices := api.Group("/invoices")
		invoices.POST("", CreateInvoice)
		invoices.GET("", GetInvoices)
		invoices.GET("/:id", GetInvoice)
		invoices.GET("/:id/print", PrintInvoice)
		invoices.PUT("/:id", UpdateInvoice)
		invoices.DELETE("/:id", DeleteInvoice)

		billable := api.Group("/billable-visits")
		billable.GET("", GetBillableVisits)
		billable.POST("/:visitId/reserve", ReserveBillableVisit)
		billable.POST("/:visitId/release", ReleaseBillableVisit)

		api.GET("/dashboard", GetDashboard)
	}
	return r
}

func performRequest(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

var testCodeSeq = 100000

func createTestClient(t *testing.T) *models.Client {
	t.Helper()
	testCodeSeq++
	client := models.Client{
		AccountCode: fmt.Sprintf("A%06d", testCodeSeq),
		FirstName:   "Pat",
		LastName:    "Harper",
		Email:       "pat@example.com",
		Street:      "12 Shore Drive",
		City:        "Carlsbad",
		State:       "CA",
		Zip:         "92011",
		IsActive:    true,
	}
	if err := config.DB.Create(&client).Error; err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return &client
}

func createCompletedVisit(t *testing.T, clientID uuid.UUID, minutes int) *models.Visit {
	t.Helper()
	completed := time.Date(2025, 6, 14, 15, 0, 0, 0, time.UTC)
	visit := models.Visit{
		ClientID:    clientID,
		ClientName:  "Pat Harper",
		ScheduledAt: completed.Add(-2 * time.Hour),
		CompletedAt: &completed,
		Services: models.ServiceSnapshots{
			{ID: uuid.New(), Name: "Home Check", DefaultDuration: 30},
		},
		EstimatedDuration: 30,
		TimeToComplete:    &minutes,
		Status:            models.VisitCompleted,
		BillingStatus:     models.BillingUnbilled,
	}
	if err := config.DB.Create(&visit).Error; err != nil {
		t.Fatalf("failed to create visit: %v", err)
	}
	return &visit
}

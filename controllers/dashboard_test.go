package controllers

import (
	"net/http"
	"testing"
	"time"

	"solamar-backend/config"
	"solamar-backend/models"
)

func seedInvoice(t *testing.T, status string, total float64) {
	t.Helper()
	invoice := models.Invoice{
		InvoiceNumber: "INV-2025-" + status + "-test",
		AccountCode:   "A100000",
		ClientName:    "Pat Harper",
		Subtotal:      total,
		Total:         total,
		Status:        status,
	}
	if err := config.DB.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
}

func TestDashboardRevenueBuckets(t *testing.T) {
	r := setupTest(t)
	client := createTestClient(t)

	seedInvoice(t, models.InvoiceDraft, 100)
	seedInvoice(t, models.InvoiceDue, 200)
	seedInvoice(t, models.InvoicePastDue, 50)
	seedInvoice(t, models.InvoicePaid, 300)

	upcoming := models.Visit{
		ClientID:      client.ID,
		ClientName:    "Pat Harper",
		ScheduledAt:   time.Now().Add(48 * time.Hour),
		Status:        models.VisitScheduled,
		BillingStatus: models.BillingUnbilled,
	}
	if err := config.DB.Create(&upcoming).Error; err != nil {
		t.Fatalf("create visit: %v", err)
	}
	farOut := models.Visit{
		ClientID:      client.ID,
		ClientName:    "Pat Harper",
		ScheduledAt:   time.Now().AddDate(0, 0, 30),
		Status:        models.VisitScheduled,
		BillingStatus: models.BillingUnbilled,
	}
	if err := config.DB.Create(&farOut).Error; err != nil {
		t.Fatalf("create visit: %v", err)
	}

	w := performRequest(t, r, http.MethodGet, "/api/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		ActiveClients int64 `json:"activeClients"`
		Revenue       struct {
			Earned    float64 `json:"earned"`
			Collected float64 `json:"collected"`
			Billed    float64 `json:"billed"`
			Due       float64 `json:"due"`
			PastDue   float64 `json:"pastDue"`
			Draft     float64 `json:"draft"`
		} `json:"revenue"`
		Goal struct {
			Target     float64 `json:"target"`
			Percentage float64 `json:"percentage"`
		} `json:"goal"`
		UpcomingVisits []models.Visit   `json:"upcomingVisits"`
		RecentInvoices []models.Invoice `json:"recentInvoices"`
	}
	decodeBody(t, w, &body)

	if body.ActiveClients != 1 {
		t.Fatalf("expected 1 active client, got %d", body.ActiveClients)
	}
	if body.Revenue.Earned != 650 {
		t.Fatalf("expected earned 650 across all statuses, got %.2f", body.Revenue.Earned)
	}
	if body.Revenue.Collected != 300 {
		t.Fatalf("expected collected 300, got %.2f", body.Revenue.Collected)
	}
	if body.Revenue.Billed != 250 || body.Revenue.Due != 200 || body.Revenue.PastDue != 50 {
		t.Fatalf("expected billed 250 (due 200 + past due 50), got %+v", body.Revenue)
	}
	if body.Revenue.Draft != 100 {
		t.Fatalf("expected draft 100, got %.2f", body.Revenue.Draft)
	}
	if body.Goal.Target != 1000 || body.Goal.Percentage != 65 {
		t.Fatalf("expected 65%% of the 1000 goal, got %+v", body.Goal)
	}
	if len(body.UpcomingVisits) != 1 {
		t.Fatalf("expected only the next week's visits, got %d", len(body.UpcomingVisits))
	}
	if len(body.RecentInvoices) != 4 {
		t.Fatalf("expected 4 recent invoices, got %d", len(body.RecentInvoices))
	}
}

func TestDashboardGoalCapsAtFull(t *testing.T) {
	r := setupTest(t)
	createTestClient(t)

	seedInvoice(t, models.InvoicePaid, 2500)

	w := performRequest(t, r, http.MethodGet, "/api/dashboard", nil)
	var body struct {
		Goal struct {
			Percentage float64 `json:"percentage"`
		} `json:"goal"`
	}
	decodeBody(t, w, &body)
	if body.Goal.Percentage != 100 {
		t.Fatalf("expected progress capped at 100, got %.2f", body.Goal.Percentage)
	}
}

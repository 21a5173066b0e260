package controllers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"solamar-backend/config"
	"solamar-backend/models"
)

func TestCreateInvoiceFromVisit(t *testing.T) {
	r := setupTest(t)
	client := createTestClient(t)
	visit := createCompletedVisit(t, client.ID, 90)

	w := performRequest(t, r, http.MethodPost, "/api/invoices", map[string]interface{}{
		"clientId": client.ID,
		"items": []map[string]interface{}{
			{"visitId": visit.ID, "quantity": 90, "description": "Services on 6/14/2025", "unitPrice": 40},
		},
		"status": "due",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var invoice models.Invoice
	decodeBody(t, w, &invoice)
	if invoice.InvoiceNumber != "INV-2025-1017" {
		t.Fatalf("expected first number INV-2025-1017, got %s", invoice.InvoiceNumber)
	}
	if invoice.AccountCode != client.AccountCode {
		t.Fatalf("expected account code %s, got %s", client.AccountCode, invoice.AccountCode)
	}
	if invoice.ClientName != "Pat Harper" || invoice.City != "Carlsbad" {
		t.Fatalf("expected client snapshot on invoice, got %+v", invoice)
	}
	if invoice.Total != 60.00 || invoice.Subtotal != 60.00 {
		t.Fatalf("expected total 60.00 for 90 min at 40/hr, got %.2f", invoice.Total)
	}

	var reloaded models.Visit
	if err := config.DB.First(&reloaded, "id = ?", visit.ID).Error; err != nil {
		t.Fatalf("reload visit: %v", err)
	}
	if reloaded.BillingStatus != models.BillingBilled {
		t.Fatalf("expected visit BILLED after invoice save, got %s", reloaded.BillingStatus)
	}
	if reloaded.InvoicedOnID == nil || *reloaded.InvoicedOnID != invoice.ID {
		t.Fatalf("expected visit linked to invoice %s", invoice.ID)
	}
	if reloaded.InvoicedOnNumber == nil || *reloaded.InvoicedOnNumber != invoice.InvoiceNumber {
		t.Fatalf("expected visit to carry number %s", invoice.InvoiceNumber)
	}
}

func TestCreateInvoiceFreeForm(t *testing.T) {
	r := setupTest(t)
	client := createTestClient(t)

	w := performRequest(t, r, http.MethodPost, "/api/invoices", map[string]interface{}{
		"clientId": client.ID,
		"items": []map[string]interface{}{
			{"quantity": 3, "description": "Key copies", "unitPrice": 25.50},
			{"quantity": 0, "description": "", "unitPrice": 0},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var invoice models.Invoice
	decodeBody(t, w, &invoice)
	if len(invoice.Items) != 1 {
		t.Fatalf("expected the empty row dropped, got %d items", len(invoice.Items))
	}
	if invoice.Total != 76.50 {
		t.Fatalf("expected total 76.50, got %.2f", invoice.Total)
	}
	if invoice.Status != models.InvoiceDraft {
		t.Fatalf("expected default status draft, got %s", invoice.Status)
	}
	if invoice.DueDateType != models.DueUponReceipt {
		t.Fatalf("expected default due type upon_receipt, got %s", invoice.DueDateType)
	}
}

func TestCreateInvoiceRequiresItems(t *testing.T) {
	r := setupTest(t)
	client := createTestClient(t)

	w := performRequest(t, r, http.MethodPost, "/api/invoices", map[string]interface{}{
		"clientId": client.ID,
		"items": []map[string]interface{}{
			{"quantity": 0, "description": "", "unitPrice": 0},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invoice with no billable rows, got %d", w.Code)
	}
}

func TestCreateInvoiceUnknownClient(t *testing.T) {
	r := setupTest(t)

	w := performRequest(t, r, http.MethodPost, "/api/invoices", map[string]interface{}{
		"clientId": uuid.New(),
		"items": []map[string]interface{}{
			{"quantity": 1, "description": "Key copy", "unitPrice": 5},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown client, got %d", w.Code)
	}
}

func TestCreateInvoiceConflictOnBilledVisit(t *testing.T) {
	r := setupTest(t)
	client := createTestClient(t)
	visit := createCompletedVisit(t, client.ID, 60)

	first := performRequest(t, r, http.MethodPost, "/api/invoices", map[string]interface{}{
		"clientId": client.ID,
		"items": []map[string]interface{}{
			{"visitId": visit.ID, "quantity": 60, "description": "Services", "unitPrice": 40},
		},
	})
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}

	second := performRequest(t, r, http.MethodPost, "/api/invoices", map[string]interface{}{
		"clientId": client.ID,
		"items": []map[string]interface{}{
			{"visitId": visit.ID, "quantity": 60, "description": "Services", "unitPrice": 40},
		},
	})
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a visit already billed elsewhere, got %d", second.Code)
	}
}

func TestInvoiceNumbersIncrement(t *testing.T) {
	r := setupTest(t)
	client := createTestClient(t)

	items := []map[string]interface{}{
		{"quantity": 1, "description": "Key copy", "unitPrice": 5},
	}
	for i, want := range []string{"INV-2025-1017", "INV-2025-1018", "INV-2025-1019"} {
		w := performRequest(t, r, http.MethodPost, "/api/invoices", map[string]interface{}{
			"clientId": client.ID,
			"items":    items,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("invoice %d: expected 201, got %d", i, w.Code)
		}
		var invoice models.Invoice
		decodeBody(t, w, &invoice)
		if invoice.InvoiceNumber != want {
			t.Fatalf("invoice %d: expected %s, got %s", i, want, invoice.InvoiceNumber)
		}
	}
}

func TestUpdateInvoicePreservesNumber(t *testing.T) {
	r := setupTest(t)
	client := createTestClient(t)

	w := performRequest(t, r, http.MethodPost, "/api/invoices", map[string]interface{}{
		"clientId": client.ID,
		"items": []map[string]interface{}{
			{"quantity": 1, "description": "Key copy", "unitPrice": 5},
		},
	})
	var created models.Invoice
	decodeBody(t, w, &created)

	w = performRequest(t, r, http.MethodPut, "/api/invoices/"+created.ID.String(), map[string]interface{}{
		"status": "paid",
		"items": []map[string]interface{}{
			{"quantity": 2, "description": "Key copies", "unitPrice": 5},
			{"quantity": 1, "description": "Lockbox", "unitPrice": 30},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated models.Invoice
	decodeBody(t, w, &updated)
	if updated.InvoiceNumber != created.InvoiceNumber {
		t.Fatalf("invoice number changed on update: %s -> %s", created.InvoiceNumber, updated.InvoiceNumber)
	}
	if updated.Status != models.InvoicePaid {
		t.Fatalf("expected status paid, got %s", updated.Status)
	}
	if len(updated.Items) != 2 || updated.Total != 40.00 {
		t.Fatalf("expected 2 items totalling 40.00, got %d items / %.2f", len(updated.Items), updated.Total)
	}
}

func TestUpdateInvoiceErrorMapping(t *testing.T) {
	r := setupTest(t)
	client := createTestClient(t)

	w := performRequest(t, r, http.MethodPut, "/api/invoices/"+uuid.New().String(),
		map[string]interface{}{"status": "paid"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown invoice, got %d", w.Code)
	}

	w = performRequest(t, r, http.MethodPost, "/api/invoices", map[string]interface{}{
		"clientId": client.ID,
		"items": []map[string]interface{}{
			{"quantity": 1, "description": "Key copy", "unitPrice": 5},
		},
	})
	var invoice models.Invoice
	decodeBody(t, w, &invoice)

	w = performRequest(t, r, http.MethodPut, "/api/invoices/"+invoice.ID.String(), map[string]interface{}{
		"items": []map[string]interface{}{
			{"quantity": -1, "description": "Key copy", "unitPrice": 5},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a negative quantity, got %d", w.Code)
	}

	w = performRequest(t, r, http.MethodPut, "/api/invoices/"+invoice.ID.String(), map[string]interface{}{
		"items": []map[string]interface{}{
			{"quantity": 0, "description": "", "unitPrice": 0},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an update leaving no billable rows, got %d", w.Code)
	}

	// Rejected updates must leave the invoice untouched.
	w = performRequest(t, r, http.MethodGet, "/api/invoices/"+invoice.ID.String(), nil)
	var unchanged models.Invoice
	decodeBody(t, w, &unchanged)
	if len(unchanged.Items) != 1 || unchanged.Total != 5.00 {
		t.Fatalf("expected invoice unchanged after rejected updates, got %d items / %.2f",
			len(unchanged.Items), unchanged.Total)
	}
}

func TestDeleteInvoiceUnbillsVisits(t *testing.T) {
	r := setupTest(t)
	client := createTestClient(t)
	visit := createCompletedVisit(t, client.ID, 90)

	w := performRequest(t, r, http.MethodPost, "/api/invoices", map[string]interface{}{
		"clientId": client.ID,
		"items": []map[string]interface{}{
			{"visitId": visit.ID, "quantity": 90, "description": "Services", "unitPrice": 40},
		},
	})
	var invoice models.Invoice
	decodeBody(t, w, &invoice)

	w = performRequest(t, r, http.MethodDelete, "/api/invoices/"+invoice.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var reloaded models.Visit
	if err := config.DB.First(&reloaded, "id = ?", visit.ID).Error; err != nil {
		t.Fatalf("visit should survive invoice deletion: %v", err)
	}
	if reloaded.BillingStatus != models.BillingUnbilled {
		t.Fatalf("expected visit UNBILLED after invoice delete, got %s", reloaded.BillingStatus)
	}
	if reloaded.InvoicedOnID != nil || reloaded.InvoicedOnNumber != nil {
		t.Fatalf("expected invoiced-on reference cleared")
	}

	var itemCount int64
	config.DB.Model(&models.InvoiceItem{}).Where("invoice_id = ?", invoice.ID).Count(&itemCount)
	if itemCount != 0 {
		t.Fatalf("expected invoice items deleted, found %d", itemCount)
	}

	w = performRequest(t, r, http.MethodGet, "/api/invoices/"+invoice.ID.String(), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestGetInvoicesFilters(t *testing.T) {
	r := setupTest(t)
	client := createTestClient(t)

	for _, status := range []string{"draft", "paid", "due"} {
		w := performRequest(t, r, http.MethodPost, "/api/invoices", map[string]interface{}{
			"clientId": client.ID,
			"status":   status,
			"items": []map[string]interface{}{
				{"quantity": 1, "description": "Key copy", "unitPrice": 5},
			},
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("seed invoice: expected 201, got %d", w.Code)
		}
	}

	w := performRequest(t, r, http.MethodGet, "/api/invoices?status=paid", nil)
	var filtered []models.Invoice
	decodeBody(t, w, &filtered)
	if len(filtered) != 1 || filtered[0].Status != models.InvoicePaid {
		t.Fatalf("expected one paid invoice, got %d", len(filtered))
	}

	w = performRequest(t, r, http.MethodGet, "/api/invoices?search=harper", nil)
	var byName []models.Invoice
	decodeBody(t, w, &byName)
	if len(byName) != 3 {
		t.Fatalf("expected all three invoices matching client name, got %d", len(byName))
	}

	w = performRequest(t, r, http.MethodGet, "/api/invoices?search=1018", nil)
	var byNumber []models.Invoice
	decodeBody(t, w, &byNumber)
	if len(byNumber) != 1 {
		t.Fatalf("expected one invoice matching number fragment, got %d", len(byNumber))
	}
}

func TestBillableVisitSelectionFlow(t *testing.T) {
	r := setupTest(t)
	client := createTestClient(t)
	visit := createCompletedVisit(t, client.ID, 90)
	createCompletedVisit(t, client.ID, 30)

	// Scheduled visits never show up as billable.
	scheduled := models.Visit{
		ClientID:      client.ID,
		ClientName:    "Pat Harper",
		ScheduledAt:   visit.ScheduledAt,
		Status:        models.VisitScheduled,
		BillingStatus: models.BillingUnbilled,
	}
	if err := config.DB.Create(&scheduled).Error; err != nil {
		t.Fatalf("create visit: %v", err)
	}

	w := performRequest(t, r, http.MethodGet, "/api/billable-visits?clientId="+client.ID.String(), nil)
	var billable []models.Visit
	decodeBody(t, w, &billable)
	if len(billable) != 2 {
		t.Fatalf("expected 2 billable visits, got %d", len(billable))
	}

	w = performRequest(t, r, http.MethodPost, "/api/billable-visits/"+visit.ID.String()+"/reserve", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on reserve, got %d: %s", w.Code, w.Body.String())
	}
	var item models.InvoiceItem
	decodeBody(t, w, &item)
	if item.Quantity != 90 || item.UnitPrice != 40 || item.LineTotal != 60.00 {
		t.Fatalf("unexpected derived line item: %+v", item)
	}

	w = performRequest(t, r, http.MethodPost, "/api/billable-visits/"+visit.ID.String()+"/reserve", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double reserve, got %d", w.Code)
	}

	w = performRequest(t, r, http.MethodGet, "/api/billable-visits?clientId="+client.ID.String(), nil)
	decodeBody(t, w, &billable)
	if len(billable) != 1 {
		t.Fatalf("expected reserved visit hidden from selection, got %d", len(billable))
	}

	w = performRequest(t, r, http.MethodPost, "/api/billable-visits/"+visit.ID.String()+"/release", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on release, got %d", w.Code)
	}

	w = performRequest(t, r, http.MethodGet, "/api/billable-visits?clientId="+client.ID.String(), nil)
	decodeBody(t, w, &billable)
	if len(billable) != 2 {
		t.Fatalf("expected released visit selectable again, got %d", len(billable))
	}
}

func TestReserveIncompleteVisit(t *testing.T) {
	r := setupTest(t)
	client := createTestClient(t)

	scheduled := models.Visit{
		ClientID:      client.ID,
		ClientName:    "Pat Harper",
		ScheduledAt:   time.Now().Add(24 * time.Hour),
		Status:        models.VisitScheduled,
		BillingStatus: models.BillingUnbilled,
	}
	if err := config.DB.Create(&scheduled).Error; err != nil {
		t.Fatalf("create visit: %v", err)
	}

	w := performRequest(t, r, http.MethodPost, "/api/billable-visits/"+scheduled.ID.String()+"/reserve", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 reserving an incomplete visit, got %d", w.Code)
	}
}

func TestPrintInvoice(t *testing.T) {
	r := setupTest(t)
	client := createTestClient(t)

	w := performRequest(t, r, http.MethodPost, "/api/invoices", map[string]interface{}{
		"clientId": client.ID,
		"items": []map[string]interface{}{
			{"quantity": 1, "description": "Key copy", "unitPrice": 5},
		},
	})
	var invoice models.Invoice
	decodeBody(t, w, &invoice)

	w = performRequest(t, r, http.MethodGet, "/api/invoices/"+invoice.ID.String()+"/print", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected HTML content type, got %s", ct)
	}
	body := w.Body.String()
	for _, want := range []string{invoice.InvoiceNumber, "Pat Harper", "Solamar Care", "Key copy", "$5.00"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected rendered invoice to contain %q", want)
		}
	}
}

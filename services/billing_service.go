// services/billing_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"solamar-backend/config"
	"solamar-backend/models"
	"solamar-backend/utils"
)

var (
	// ErrAlreadyBilled is returned when a visit is reserved or billed twice.
	ErrAlreadyBilled = errors.New("visit is already billed")
	// ErrNotBillable is returned when a visit is not in a billable state.
	ErrNotBillable = errors.New("visit is not completed")
	// ErrMalformedNumber is returned when a stored invoice number cannot be
	// parsed. The generator never silently reuses a number.
	ErrMalformedNumber = errors.New("malformed invoice number in storage")
	// ErrNegativeAmount is returned for negative quantities or prices.
	ErrNegativeAmount = errors.New("quantity and unit price must not be negative")
)

// BillingService owns invoice numbering, line-item math and the bidirectional
// linkage between invoices and visit billing state.
type BillingService struct {
	db *gorm.DB
}

func NewBillingService(db *gorm.DB) *BillingService {
	return &BillingService{db: db}
}

// NextInvoiceNumber computes the next sequential number, INV-<year>-<n>. The
// year is the configured series, not the wall clock. With no invoices in the
// series the configured seed starts it. Pure read; callers persist the number
// inside the same transaction that creates the invoice.
func (s *BillingService) NextInvoiceNumber(tx *gorm.DB) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", config.InvoiceYear())

	var numbers []string
	if err := tx.Model(&models.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Pluck("invoice_number", &numbers).Error; err != nil {
		return "", err
	}

	next := config.InvoiceSeed()
	for _, number := range numbers {
		suffix := strings.TrimPrefix(number, prefix)
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 0 {
			return "", fmt.Errorf("%w: %q", ErrMalformedNumber, number)
		}
		if n+1 > next {
			next = n + 1
		}
	}

	return fmt.Sprintf("%s%d", prefix, next), nil
}

// LineTotal computes one item's total. Time-based items price minutes at an
// hourly rate; free-form items price quantity at unit price. Zero quantity or
// price yields 0.00, negatives are rejected.
func LineTotal(quantity, unitPrice float64, timeBased bool) (float64, error) {
	if quantity < 0 || unitPrice < 0 {
		return 0, ErrNegativeAmount
	}
	if timeBased {
		return utils.Round2((quantity / 60) * unitPrice), nil
	}
	return utils.Round2(quantity * unitPrice), nil
}

// ApplyTotals recomputes every line total and the invoice subtotal and total.
// Total currently equals subtotal; a tax stage slots in between the two
// assignments without touching the summation.
func ApplyTotals(invoice *models.Invoice) error {
	var subtotal float64
	for i := range invoice.Items {
		item := &invoice.Items[i]
		total, err := LineTotal(item.Quantity, item.UnitPrice, item.TimeBased())
		if err != nil {
			return err
		}
		item.LineTotal = total
		subtotal = utils.Round2(subtotal + total)
	}
	invoice.Subtotal = subtotal
	invoice.Total = subtotal
	return nil
}

// EligibleVisits lists a client's completed, not-yet-billed visits, newest
// completion first. The secondary billing-status ordering keeps any
// inconsistent rows surfacing in a stable spot.
func (s *BillingService) EligibleVisits(clientID uuid.UUID) ([]models.Visit, error) {
	var visits []models.Visit
	err := s.db.
		Where("client_id = ? AND status = ? AND billing_status <> ?",
			clientID, models.VisitCompleted, models.BillingBilled).
		Order("billing_status").
		Order("completed_at DESC").
		Find(&visits).Error
	return visits, err
}

// VisitLineItem derives an invoice line item from a completed visit: actual
// minutes as the quantity, the default hourly rate as the editable starting
// price.
func VisitLineItem(visit *models.Visit) (models.InvoiceItem, error) {
	minutes := 0
	if visit.TimeToComplete != nil {
		minutes = *visit.TimeToComplete
	}

	description := "Services"
	if visit.CompletedAt != nil {
		description = "Services on " + visit.CompletedAt.Format("1/2/2006")
	}
	if len(visit.Services) > 0 {
		names := make([]string, 0, len(visit.Services))
		for _, svc := range visit.Services {
			names = append(names, svc.Name)
		}
		description += ": " + strings.Join(names, ", ")
	}

	visitID := visit.ID
	item := models.InvoiceItem{
		VisitID:     &visitID,
		Quantity:    float64(minutes),
		Description: description,
		UnitPrice:   config.DefaultHourlyRate(),
	}
	total, err := LineTotal(item.Quantity, item.UnitPrice, true)
	if err != nil {
		return models.InvoiceItem{}, err
	}
	item.LineTotal = total
	return item, nil
}

// ReserveVisit converts a visit into a line item for an in-progress invoice
// and immediately marks it BILLED so a concurrent editor cannot pull it in
// too. The invoiced-on id stays nil while the draft is unsaved; saving the
// invoice fills it in, and the reconciliation sweep releases reservations
// whose draft was abandoned.
func (s *BillingService) ReserveVisit(visitID uuid.UUID, invoiceID *uuid.UUID) (models.InvoiceItem, error) {
	var item models.InvoiceItem

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var visit models.Visit
		if err := tx.Where("id = ?", visitID).First(&visit).Error; err != nil {
			return err
		}
		if visit.BillingStatus == models.BillingBilled {
			return ErrAlreadyBilled
		}
		if visit.Status != models.VisitCompleted {
			return ErrNotBillable
		}

		number := ""
		if invoiceID != nil {
			var invoice models.Invoice
			if err := tx.Where("id = ?", *invoiceID).First(&invoice).Error; err != nil {
				return err
			}
			number = invoice.InvoiceNumber
		} else {
			// Provisional, display-only number. A concurrent creation can claim
			// it first; saving the draft rewrites the visit with the final id and
			// number, and the abandoned-reservation sweep keys off the nil id,
			// never off this number.
			next, err := s.NextInvoiceNumber(tx)
			if err != nil {
				return err
			}
			number = next
		}

		now := time.Now()
		if err := tx.Model(&models.Visit{}).Where("id = ?", visit.ID).
			Updates(map[string]interface{}{
				"billing_status":     models.BillingBilled,
				"invoiced_on_id":     invoiceID,
				"invoiced_on_number": number,
				"invoiced_on_at":     now,
				"updated_at":         now,
			}).Error; err != nil {
			return err
		}

		derived, err := VisitLineItem(&visit)
		if err != nil {
			return err
		}
		item = derived
		return nil
	})

	return item, err
}

// ReleaseVisit reverts a reserved or billed visit to UNBILLED and clears the
// invoiced-on reference. Releasing an unbilled visit is a no-op, so deselect
// followed by reselect round-trips cleanly.
func (s *BillingService) ReleaseVisit(visitID uuid.UUID) error {
	result := s.db.Model(&models.Visit{}).Where("id = ?", visitID).
		Updates(map[string]interface{}{
			"billing_status":     models.BillingUnbilled,
			"invoiced_on_id":     nil,
			"invoiced_on_number": nil,
			"invoiced_on_at":     nil,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// BillVisitsForInvoice flips every visit-derived item's source visit to BILLED
// with the final invoice id and number. Runs inside the invoice save
// transaction. A visit already claimed by a different invoice aborts the save.
func BillVisitsForInvoice(tx *gorm.DB, invoice *models.Invoice) error {
	now := time.Now()
	for i := range invoice.Items {
		item := &invoice.Items[i]
		if item.VisitID == nil {
			continue
		}

		var visit models.Visit
		if err := tx.Where("id = ?", *item.VisitID).First(&visit).Error; err != nil {
			return err
		}
		if visit.BillingStatus == models.BillingBilled &&
			visit.InvoicedOnID != nil && *visit.InvoicedOnID != invoice.ID {
			return ErrAlreadyBilled
		}

		if err := tx.Model(&models.Visit{}).Where("id = ?", visit.ID).
			Updates(map[string]interface{}{
				"billing_status":     models.BillingBilled,
				"invoiced_on_id":     invoice.ID,
				"invoiced_on_number": invoice.InvoiceNumber,
				"invoiced_on_at":     now,
				"updated_at":         now,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// UnbillVisitsForInvoice reverts every visit-derived item's source visit to
// UNBILLED. Runs inside the invoice delete transaction; the visits themselves
// are never touched beyond their billing fields.
func UnbillVisitsForInvoice(tx *gorm.DB, invoice *models.Invoice) error {
	now := time.Now()
	for i := range invoice.Items {
		item := &invoice.Items[i]
		if item.VisitID == nil {
			continue
		}
		if err := tx.Model(&models.Visit{}).Where("id = ?", *item.VisitID).
			Updates(map[string]interface{}{
				"billing_status":     models.BillingUnbilled,
				"invoiced_on_id":     nil,
				"invoiced_on_number": nil,
				"invoiced_on_at":     nil,
				"updated_at":         now,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// MarkPastDueInvoices rolls due invoices with a lapsed specific due date over
// to past_due. An invoice due today is not past due yet. Returns how many were
// rolled over.
func (s *BillingService) MarkPastDueInvoices() (int, error) {
	today := utils.BeginningOfDay(time.Now())
	result := s.db.Model(&models.Invoice{}).
		Where("status = ? AND due_date_type = ? AND due_date IS NOT NULL AND due_date < ?",
			models.InvoiceDue, models.DueSpecificDate, today).
		Update("status", models.InvoicePastDue)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Marked %d invoices past due", result.RowsAffected)
	}
	return int(result.RowsAffected), nil
}

// ReconcileAbandonedReservations releases visits that were reserved against a
// draft that was never saved: BILLED, no invoice id, and untouched past the
// cutoff. Returns how many were released.
func (s *BillingService) ReconcileAbandonedReservations(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	result := s.db.Model(&models.Visit{}).
		Where("billing_status = ? AND invoiced_on_id IS NULL AND updated_at < ?",
			models.BillingBilled, cutoff).
		Updates(map[string]interface{}{
			"billing_status":     models.BillingUnbilled,
			"invoiced_on_number": nil,
			"invoiced_on_at":     nil,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Released %d abandoned visit reservations", result.RowsAffected)
	}
	return int(result.RowsAffected), nil
}

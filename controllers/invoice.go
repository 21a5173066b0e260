// controllers/invoice.go
package controllers

import (
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"solamar-backend/config"
	"solamar-backend/models"
	"solamar-backend/services"
	"solamar-backend/utils"
)

func billing() *services.BillingService {
	return services.NewBillingService(config.DB)
}

// InvoiceItemInput defines the structure for an invoice item. A VisitID marks
// the item as visit-derived: Quantity is minutes and UnitPrice an hourly rate.
type InvoiceItemInput struct {
	VisitID     *uuid.UUID `json:"visitId"`
	Quantity    float64    `json:"quantity" binding:"min=0"`
	Description string     `json:"description"`
	UnitPrice   float64    `json:"unitPrice" binding:"min=0"`
}

// CreateInvoiceInput defines the expected JSON structure for creating an invoice
type CreateInvoiceInput struct {
	ClientID    uuid.UUID          `json:"clientId" binding:"required"`
	Items       []InvoiceItemInput `json:"items" binding:"required"`
	Status      string             `json:"status" binding:"omitempty,oneof=draft due past_due paid"`
	DueDateType string             `json:"dueDateType" binding:"omitempty,oneof=upon_receipt specific_date"`
	DueDate     *time.Time         `json:"dueDate"`
}

// UpdateInvoiceInput defines the expected JSON structure for updating an invoice
type UpdateInvoiceInput struct {
	Items       *[]InvoiceItemInput `json:"items"`
	Status      *string             `json:"status" binding:"omitempty,oneof=draft due past_due paid"`
	DueDateType *string             `json:"dueDateType" binding:"omitempty,oneof=upon_receipt specific_date"`
	DueDate     *time.Time          `json:"dueDate"`
}

// buildItems drops empty rows (no description, no price) the way the editor
// does, and rejects an invoice with nothing left.
func buildItems(inputs []InvoiceItemInput) ([]models.InvoiceItem, error) {
	items := make([]models.InvoiceItem, 0, len(inputs))
	for _, in := range inputs {
		if in.Description == "" && in.UnitPrice == 0 {
			continue
		}
		items = append(items, models.InvoiceItem{
			VisitID:     in.VisitID,
			Quantity:    in.Quantity,
			Description: in.Description,
			UnitPrice:   in.UnitPrice,
			Position:    len(items),
		})
	}
	if len(items) == 0 {
		return nil, errors.New("at least one line item with a description or price is required")
	}
	return items, nil
}

// resolveDueDate enforces the two due-date modes: a specific date needs a
// date, upon-receipt carries none.
func resolveDueDate(dueDateType string, dueDate *time.Time) (string, *time.Time, error) {
	if dueDateType == "" {
		dueDateType = models.DueUponReceipt
	}
	if dueDateType == models.DueSpecificDate {
		if dueDate == nil {
			return "", nil, errors.New("a due date is required for a specific date")
		}
		return dueDateType, dueDate, nil
	}
	return models.DueUponReceipt, nil, nil
}

// CreateInvoice creates a new invoice. The number assignment, the invoice
// write and the billing flip of every source visit run in one transaction.
func CreateInvoice(c *gin.Context) {
	var input CreateInvoiceInput
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
	if client.AccountCode == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Client account code not found")
		return
	}

	items, err := buildItems(input.Items)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	status := input.Status
	if status == "" {
		status = models.InvoiceDraft
	}
	dueDateType, dueDate, err := resolveDueDate(input.DueDateType, input.DueDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	invoice := models.Invoice{
		AccountCode: client.AccountCode,
		ClientName:  client.FullName(),
		Street:      client.Street,
		City:        client.City,
		State:       client.State,
		Zip:         client.Zip,
		Items:       items,
		Status:      status,
		DueDateType: dueDateType,
		DueDate:     dueDate,
	}

	if err := services.ApplyTotals(&invoice); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	svc := billing()
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		number, err := svc.NextInvoiceNumber(tx)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number

		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		return services.BillVisitsForInvoice(tx, &invoice)
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyBilled):
			utils.RespondWithError(c, http.StatusConflict, "A selected visit is already billed on another invoice")
		case errors.Is(err, gorm.ErrRecordNotFound):
			utils.RespondWithError(c, http.StatusBadRequest, "A selected visit no longer exists")
		default:
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create invoice")
		}
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// GetInvoices lists invoices newest first, with status filtering and free-text
// search across client name, number, status and address fields.
func GetInvoices(c *gin.Context) {
	query := config.DB.Model(&models.Invoice{})

	if status := c.Query("status"); status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}
	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		like := "%" + search + "%"
		query = query.Where(
			"lower(client_name) LIKE ? OR lower(invoice_number) LIKE ? OR lower(status) LIKE ? OR lower(street) LIKE ? OR lower(city) LIKE ? OR lower(state) LIKE ? OR lower(zip) LIKE ?",
			like, like, like, like, like, like, like)
	}

	var invoices []models.Invoice
	if err := query.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}).Order("created_at DESC").Find(&invoices).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve invoices")
		return
	}

	c.JSON(http.StatusOK, invoices)
}

// GetInvoice retrieves a specific invoice by ID
func GetInvoice(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	var invoice models.Invoice
	if err := config.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}).Where("id = ?", invoiceUUID).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Invoice not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// UpdateInvoice edits an invoice in place. The invoice number and creation
// time never change; totals are recomputed from the current items. Visit
// linkages are owned by the reserve/release flow and are not re-diffed here.
func UpdateInvoice(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	var input UpdateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// Validate the payload before touching storage so the transaction can only
	// fail on storage errors or negative amounts.
	var newItems []models.InvoiceItem
	if input.Items != nil {
		items, err := buildItems(*input.Items)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		newItems = items
	}

	var newDueDateType string
	var newDueDate *time.Time
	if input.DueDateType != nil {
		dueDateType, dueDate, err := resolveDueDate(*input.DueDateType, input.DueDate)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		newDueDateType = dueDateType
		newDueDate = dueDate
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).Where("id = ?", invoiceUUID).First(&invoice).Error; err != nil {
			return err
		}

		if newItems != nil {
			if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
				return err
			}
			for i := range newItems {
				newItems[i].InvoiceID = invoice.ID
			}
			invoice.Items = newItems
		}

		if input.Status != nil {
			invoice.Status = *input.Status
		}
		if input.DueDateType != nil {
			invoice.DueDateType = newDueDateType
			invoice.DueDate = newDueDate
		} else if input.DueDate != nil {
			invoice.DueDate = input.DueDate
		}

		if err := services.ApplyTotals(&invoice); err != nil {
			return err
		}

		return tx.Save(&invoice).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			utils.RespondWithError(c, http.StatusNotFound, "Invoice not found")
		case errors.Is(err, services.ErrNegativeAmount):
			utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		default:
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update invoice")
		}
		return
	}

	GetInvoice(c)
}

// DeleteInvoice deletes an invoice and un-bills every source visit in one
// transaction. The visits themselves survive with schedule and notes intact.
func DeleteInvoice(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.Preload("Items").Where("id = ?", invoiceUUID).First(&invoice).Error; err != nil {
			return err
		}

		if err := services.UnbillVisitsForInvoice(tx, &invoice); err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&invoice).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Invoice not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete invoice")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted and visits updated"})
}

// GetBillableVisits lists a client's completed, unbilled visits for the
// invoice editor's selection modal.
func GetBillableVisits(c *gin.Context) {
	clientID := c.Query("clientId")
	if clientID == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "clientId is required")
		return
	}
	clientUUID, err := uuid.Parse(clientID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid client ID format")
		return
	}

	visits, err := billing().EligibleVisits(clientUUID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve visits")
		return
	}

	c.JSON(http.StatusOK, visits)
}

type ReserveVisitInput struct {
	// The owning invoice when one already exists; nil while the draft is unsaved.
	InvoiceID *uuid.UUID `json:"invoiceId"`
}

// ReserveBillableVisit pulls a visit into an in-progress invoice: it marks the
// visit BILLED right away so no concurrent editor can double-bill it, and
// returns the derived line item for the editor to append.
func ReserveBillableVisit(c *gin.Context) {
	visitUUID, err := uuid.Parse(c.Param("visitId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid visit ID format")
		return
	}

	var input ReserveVisitInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
			return
		}
	}

	item, err := billing().ReserveVisit(visitUUID, input.InvoiceID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyBilled):
			utils.RespondWithError(c, http.StatusConflict, "Visit is already billed")
		case errors.Is(err, services.ErrNotBillable):
			utils.RespondWithError(c, http.StatusBadRequest, "Visit is not completed")
		case errors.Is(err, gorm.ErrRecordNotFound):
			utils.RespondWithError(c, http.StatusNotFound, "Visit not found")
		default:
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to reserve visit")
		}
		return
	}

	c.JSON(http.StatusOK, item)
}

// ReleaseBillableVisit removes a visit from an in-progress invoice, reverting
// it to UNBILLED and clearing the invoiced-on reference.
func ReleaseBillableVisit(c *gin.Context) {
	visitUUID, err := uuid.Parse(c.Param("visitId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid visit ID format")
		return
	}

	if err := billing().ReleaseVisit(visitUUID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Visit not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to release visit")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Visit removed from invoice"})
}

var printTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Invoice {{.Invoice.InvoiceNumber}}</title>
<style>
body { font-family: Arial, sans-serif; padding: 20px; color: #333; }
.invoice-header { display: flex; justify-content: space-between; margin-bottom: 40px; }
.company-info h2, .bill-to-info h2 { margin: 0 0 10px 0; color: #2d3748; }
table { width: 100%; border-collapse: collapse; margin: 20px 0; }
th, td { padding: 12px; text-align: left; border-bottom: 1px solid #ddd; }
th:last-child, td:last-child { text-align: right; }
.totals { text-align: right; margin-top: 20px; }
.payment-info { margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd; text-align: center; color: #4a5568; }
@media print { body { margin: 0; } }
</style>
</head>
<body>
<div class="invoice-header">
  <div class="company-info">
    <h2>{{.CompanyName}}</h2>
    <p>{{.CompanyAttn}}</p>
    <p>{{.CompanyStreet}}</p>
    <p>{{.CompanyCityLine}}</p>
    <p>Invoice #: {{.Invoice.InvoiceNumber}}</p>
    <p>Date: {{.Date}}</p>
  </div>
  <div class="bill-to-info">
    <h2>Bill To:</h2>
    <p>{{.Invoice.ClientName}}</p>
    <p>{{.Invoice.Street}}</p>
    <p>{{.Invoice.City}}, {{.Invoice.State}} {{.Invoice.Zip}}</p>
  </div>
</div>
<table>
  <thead>
    <tr><th>Qty/Time</th><th>Description</th><th>Unit Price</th><th>Line Total</th></tr>
  </thead>
  <tbody>
    {{range .Invoice.Items}}<tr>
      <td>{{.Quantity}}</td>
      <td>{{.Description}}</td>
      <td>${{printf "%.2f" .UnitPrice}}</td>
      <td>${{printf "%.2f" .LineTotal}}</td>
    </tr>{{end}}
  </tbody>
</table>
<div class="totals">
  <p><strong>Total: ${{printf "%.2f" .Invoice.Total}}</strong></p>
  <p>Due: {{.DueText}}</p>
</div>
<div class="payment-info">
  <p>{{.PaymentInstructions}}</p>
</div>
</body>
</html>
`))

// PrintInvoice renders a static printable view of an invoice. Pure formatting
// over already-computed fields.
func PrintInvoice(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	var invoice models.Invoice
	if err := config.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}).Where("id = ?", invoiceUUID).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Invoice not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	dueText := "Upon Receipt"
	if invoice.DueDateType == models.DueSpecificDate && invoice.DueDate != nil {
		dueText = invoice.DueDate.Format("1/2/2006")
	}

	data := gin.H{
		"Invoice":             invoice,
		"Date":                time.Now().Format("1/2/2006"),
		"DueText":             dueText,
		"CompanyName":         config.CompanyName(),
		"CompanyAttn":         config.CompanyAttn(),
		"CompanyStreet":       config.CompanyStreet(),
		"CompanyCityLine":     config.CompanyCityLine(),
		"PaymentInstructions": config.PaymentInstructions(),
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := printTemplate.Execute(c.Writer, data); err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to render invoice")
	}
}

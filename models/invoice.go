package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	InvoiceDraft   = "draft"
	InvoiceDue     = "due"
	InvoicePastDue = "past_due"
	InvoicePaid    = "paid"

	DueUponReceipt  = "upon_receipt"
	DueSpecificDate = "specific_date"
)

type Invoice struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`

	// Sequential human-readable number, INV-<year>-<n>. Assigned once inside the
	// creation transaction and never changed afterwards.
	InvoiceNumber string `gorm:"uniqueIndex;not null" json:"invoiceNumber"`

	// Denormalized client snapshot taken at save time, not a live reference.
	AccountCode string `gorm:"index;not null" json:"accountCode"`
	ClientName  string `json:"clientName"`
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items"`

	Subtotal float64 `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Total    float64 `gorm:"type:decimal(10,2);not null" json:"total"`

	Status string `gorm:"type:varchar(20);default:'draft'" json:"status"`

	DueDateType string     `gorm:"type:varchar(20);default:'upon_receipt'" json:"dueDateType"`
	DueDate     *time.Time `json:"dueDate"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

// InvoiceItem is one invoice row. VisitID nil means a free-form item with
// Quantity * UnitPrice; otherwise Quantity is minutes and UnitPrice an hourly
// rate, totalled as (Quantity/60) * UnitPrice.
type InvoiceItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	InvoiceID uuid.UUID  `gorm:"type:uuid;index;not null" json:"invoiceId"`
	VisitID   *uuid.UUID `gorm:"type:uuid;index" json:"visitId"`

	Quantity    float64 `gorm:"type:decimal(10,2)" json:"quantity"`
	Description string  `json:"description"`
	UnitPrice   float64 `gorm:"type:decimal(10,2)" json:"unitPrice"`
	LineTotal   float64 `gorm:"type:decimal(10,2)" json:"lineTotal"`

	// Ordinal position inside the invoice; items are not independently addressable.
	Position int `json:"position"`
}

func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

// TimeBased reports whether the item's total is computed from minutes at an
// hourly rate rather than a plain quantity.
func (i *InvoiceItem) TimeBased() bool {
	return i.VisitID != nil
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	VisitScheduled  = "SCHEDULED"
	VisitInProgress = "IN_PROGRESS"
	VisitCompleted  = "COMPLETED"
	VisitCancelled  = "CANCELLED"

	BillingBilled   = "BILLED"
	BillingUnbilled = "UNBILLED"
)

// ServiceSnapshot captures a catalog service as it was when the visit was
// scheduled. Visits never join back to the live catalog.
type ServiceSnapshot struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DefaultDuration int       `json:"defaultDuration"`
}

type ServiceSnapshots []ServiceSnapshot

func (s ServiceSnapshots) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *ServiceSnapshots) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	case nil:
		*s = nil
		return nil
	}
	return errors.New("unsupported type for ServiceSnapshots")
}

type Visit struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ClientID uuid.UUID `gorm:"type:uuid;index;not null" json:"clientId"`

	// Denormalized for list rendering; not refreshed when the client is edited.
	ClientName string `json:"clientName"`

	ScheduledAt time.Time  `gorm:"not null" json:"scheduledAt"`
	CompletedAt *time.Time `json:"completedAt"`

	Services          ServiceSnapshots `gorm:"type:jsonb" json:"services"`
	EstimatedDuration int              `json:"estimatedDuration"`

	// Actual minutes worked; the billable quantity for visit-derived line items.
	TimeToComplete *int `json:"timeToComplete"`

	Status        string `gorm:"type:varchar(20);default:'SCHEDULED'" json:"status"`
	BillingStatus string `gorm:"type:varchar(20);default:'UNBILLED'" json:"billingStatus"`

	// Invoiced-on back-reference, present only while BILLED. The invoice id stays
	// nil while the owning draft is still unsaved; the reconciliation sweep uses
	// that to find abandoned reservations.
	InvoicedOnID     *uuid.UUID `gorm:"type:uuid" json:"invoicedOnId"`
	InvoicedOnNumber *string    `json:"invoicedOnNumber"`
	InvoicedOnAt     *time.Time `json:"invoicedOnAt"`

	Notes string `json:"notes"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (v *Visit) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return
}

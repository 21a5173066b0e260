package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CampaignDraft     = "draft"
	CampaignActive    = "active"
	CampaignCompleted = "completed"
)

type MarketingCampaign struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name    string    `gorm:"not null" json:"name"`
	Message string    `gorm:"type:text;not null" json:"message"`

	// sms or whatsapp; the dispatcher upgrades to whatsapp for E.164 numbers.
	Channel string `gorm:"type:varchar(20);default:'sms'" json:"channel"`
	Status  string `gorm:"type:varchar(20);default:'draft'" json:"status"`

	// Active campaigns with a ScheduledAt in the past are picked up by the
	// daily scheduler run.
	ScheduledAt *time.Time `json:"scheduledAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *MarketingCampaign) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}

type CampaignLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CampaignID uuid.UUID `gorm:"type:uuid;index;not null" json:"campaignId"`
	ClientID   uuid.UUID `gorm:"type:uuid;index;not null" json:"clientId"`

	Message      string    `gorm:"type:text" json:"message"`
	Status       string    `gorm:"type:varchar(20)" json:"status"` // sent, failed
	ErrorMessage string    `gorm:"type:text" json:"errorMessage"`
	Channel      string    `gorm:"type:varchar(20)" json:"channel"`
	SentAt       time.Time `json:"sentAt"`

	CreatedAt time.Time `json:"createdAt"`
}

func (l *CampaignLog) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return
}

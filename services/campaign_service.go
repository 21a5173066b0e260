// services/campaign_service.go
package services

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"

	"solamar-backend/config"
	"solamar-backend/models"
)

type CampaignService struct {
	db      *gorm.DB
	billing *BillingService
	client  *twilio.RestClient
}

func NewCampaignService(db *gorm.DB) *CampaignService {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	return &CampaignService{
		db:      db,
		billing: NewBillingService(db),
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
	}
}

// StartScheduler runs the daily campaign dispatch at 9 AM, the midnight
// past-due rollover and the hourly sweep that releases abandoned visit
// reservations.
func (s *CampaignService) StartScheduler() {
	c := cron.New()

	c.AddFunc("0 9 * * *", func() {
		s.ProcessScheduledCampaigns()
	})
	c.AddFunc("0 0 * * *", func() {
		if _, err := s.billing.MarkPastDueInvoices(); err != nil {
			log.Printf("Past-due rollover failed: %v", err)
		}
	})
	c.AddFunc("@hourly", func() {
		olderThan := time.Duration(config.ReservationSweepAfterHours()) * time.Hour
		if _, err := s.billing.ReconcileAbandonedReservations(olderThan); err != nil {
			log.Printf("Reservation sweep failed: %v", err)
		}
	})

	c.Start()
	log.Println("Campaign scheduler started")
}

// ProcessScheduledCampaigns dispatches every active campaign whose scheduled
// time has arrived.
func (s *CampaignService) ProcessScheduledCampaigns() {
	log.Println("Starting scheduled campaign processing...")

	var campaigns []models.MarketingCampaign
	if err := s.db.
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?",
			models.CampaignActive, time.Now()).
		Find(&campaigns).Error; err != nil {
		log.Printf("Failed to fetch scheduled campaigns: %v", err)
		return
	}

	for _, campaign := range campaigns {
		if err := s.SendCampaign(campaign.ID); err != nil {
			log.Printf("Campaign %s: dispatch failed: %v", campaign.ID, err)
		}
	}

	log.Println("Scheduled campaign processing completed")
}

// SendCampaign sends the campaign message to every active client with a phone
// number, logging one CampaignLog per recipient, then marks the campaign
// completed.
func (s *CampaignService) SendCampaign(campaignID uuid.UUID) error {
	var campaign models.MarketingCampaign
	if err := s.db.Where("id = ?", campaignID).First(&campaign).Error; err != nil {
		return err
	}

	var clients []models.Client
	if err := s.db.Where("is_active = ? AND phone <> ''", true).Find(&clients).Error; err != nil {
		return err
	}

	for _, client := range clients {
		message := strings.ReplaceAll(campaign.Message, "[ClientName]", client.FullName())

		// WhatsApp needs an E.164 number; fall back to SMS otherwise.
		channel := "sms"
		to := client.Phone
		if campaign.Channel == "whatsapp" && strings.HasPrefix(client.Phone, "+") {
			to = "whatsapp:" + client.Phone
			channel = "whatsapp"
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetBody(message)
		if channel == "whatsapp" {
			params.SetFrom("whatsapp:" + os.Getenv("TWILIO_WHATSAPP_NUMBER"))
		} else {
			params.SetFrom(os.Getenv("TWILIO_PHONE_NUMBER"))
		}

		resp, err := s.client.Api.CreateMessage(params)
		status := "sent"
		errorMsg := ""

		if err != nil {
			log.Printf("Failed to send message to %s: %v", client.Phone, err)
			status = "failed"
			errorMsg = err.Error()
		} else if resp.Sid != nil {
			log.Printf("Message sent to %s, SID: %s", client.Phone, *resp.Sid)
		} else {
			log.Printf("Message sent to %s, but no SID returned", client.Phone)
		}

		campaignLog := models.CampaignLog{
			CampaignID:   campaign.ID,
			ClientID:     client.ID,
			Message:      message,
			Status:       status,
			ErrorMessage: errorMsg,
			Channel:      channel,
			SentAt:       time.Now(),
		}
		if err := s.db.Create(&campaignLog).Error; err != nil {
			log.Printf("Failed to log campaign send for client %s: %v", client.ID, err)
		}
	}

	return s.db.Model(&models.MarketingCampaign{}).Where("id = ?", campaign.ID).
		Update("status", models.CampaignCompleted).Error
}

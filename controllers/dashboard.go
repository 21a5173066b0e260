// controllers/dashboard.go
package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"solamar-backend/config"
	"solamar-backend/models"
	"solamar-backend/utils"
)

// GetDashboard assembles the landing-page snapshot: client count, revenue
// buckets, goal progress, recent activity and the coming week's visits.
//
// Revenue definitions: earned sums every invoice regardless of status,
// collected is paid only, billed is due plus past-due, draft is unsent work.
func GetDashboard(c *gin.Context) {
	var activeClients int64
	if err := config.DB.Model(&models.Client{}).
		Where("is_active = ?", true).Count(&activeClients).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	var invoices []models.Invoice
	if err := config.DB.Order("created_at DESC").Find(&invoices).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	var earned, collected, due, pastDue, draft float64
	for _, inv := range invoices {
		earned = utils.Round2(earned + inv.Total)
		switch inv.Status {
		case models.InvoicePaid:
			collected = utils.Round2(collected + inv.Total)
		case models.InvoiceDue:
			due = utils.Round2(due + inv.Total)
		case models.InvoicePastDue:
			pastDue = utils.Round2(pastDue + inv.Total)
		case models.InvoiceDraft:
			draft = utils.Round2(draft + inv.Total)
		}
	}
	billed := utils.Round2(due + pastDue)

	goal := config.RevenueGoal()
	progress := 0.0
	if goal > 0 {
		progress = earned / goal
		if progress > 1 {
			progress = 1
		}
	}

	recentInvoices := invoices
	if len(recentInvoices) > 5 {
		recentInvoices = recentInvoices[:5]
	}

	var recentClients []models.Client
	if err := config.DB.Order("created_at DESC").Limit(5).Find(&recentClients).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	now := time.Now()
	var upcomingVisits []models.Visit
	if err := config.DB.
		Where("scheduled_at >= ? AND scheduled_at < ? AND status IN ?",
			now, now.AddDate(0, 0, 7),
			[]string{models.VisitScheduled, models.VisitInProgress}).
		Order("scheduled_at").
		Find(&upcomingVisits).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activeClients": activeClients,
		"revenue": gin.H{
			"earned":    earned,
			"collected": collected,
			"billed":    billed,
			"due":       due,
			"pastDue":   pastDue,
			"draft":     draft,
		},
		"goal": gin.H{
			"target":     goal,
			"percentage": utils.Round2(progress * 100),
			"label":      fmt.Sprintf("$%.2f of $%.2f", earned, goal),
		},
		"recentClients":  recentClients,
		"recentInvoices": recentInvoices,
		"upcomingVisits": upcomingVisits,
	})
}

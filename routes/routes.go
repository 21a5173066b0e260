package routes

import (
	"solamar-backend/config"
	"solamar-backend/controllers"
	"solamar-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", controllers.Me)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		// Client routes
		clients := api.Group("/clients")
		{
			clients.POST("", controllers.CreateClient)
			clients.GET("", controllers.GetClients)
			clients.GET("/:id", controllers.GetClient)
			clients.PUT("/:id", controllers.UpdateClient)
			clients.DELETE("/:id", controllers.DeleteClient)
		}

		// Service catalog routes
		services := api.Group("/services")
		{
			services.POST("", controllers.CreateService)
			services.GET("", controllers.GetServices)
			services.POST("/seed", controllers.SeedServices)
			services.GET("/:id", controllers.GetService)
			services.PUT("/:id", controllers.UpdateService)
			services.DELETE("/:id", controllers.DeleteService)
		}

		categories := api.Group("/service-categories")
		{
			categories.POST("", controllers.CreateCategory)
			categories.GET("", controllers.GetCategories)
			categories.PUT("/:id", controllers.UpdateCategory)
			categories.DELETE("/:id", controllers.DeleteCategory)
		}

		// Visit routes
		visits := api.Group("/visits")
		{
			visits.POST("", controllers.CreateVisit)
			visits.GET("", controllers.GetVisits)
			visits.GET("/:id", controllers.GetVisit)
			visits.PUT("/:id", controllers.UpdateVisit)
			visits.PUT("/:id/status", controllers.UpdateVisitStatus)
			visits.DELETE("/:id", controllers.DeleteVisit)
		}

		// Invoice routes
		invoices := api.Group("/invoices")
		{
			invoices.POST("", controllers.CreateInvoice)
			invoices.GET("", controllers.GetInvoices)
			invoices.GET("/:id", controllers.GetInvoice)
			invoices.GET("/:id/print", controllers.PrintInvoice)
			invoices.PUT("/:id", controllers.UpdateInvoice)
			invoices.DELETE("/:id", controllers.DeleteInvoice)
		}

		// Billable visit selection for the invoice editor
		billable := api.Group("/billable-visits")
		{
			billable.GET("", controllers.GetBillableVisits)
			billable.POST("/:visitId/reserve", controllers.ReserveBillableVisit)
			billable.POST("/:visitId/release", controllers.ReleaseBillableVisit)
		}

		// Marketing campaign routes
		campaigns := api.Group("/campaigns")
		{
			campaigns.POST("", controllers.CreateCampaign)
			campaigns.GET("", controllers.GetCampaigns)
			campaigns.GET("/:id", controllers.GetCampaign)
			campaigns.PUT("/:id", controllers.UpdateCampaign)
			campaigns.DELETE("/:id", controllers.DeleteCampaign)
			campaigns.POST("/:id/send", controllers.SendCampaign)
		}

		// Dashboard routes
		api.GET("/dashboard", controllers.GetDashboard)
	}

	return r
}

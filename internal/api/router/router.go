// Package router wires the gin engine: middleware, health probe and the
// versioned API routes.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/printshop-os/opsboard/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes.
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "opsboard-api",
		})
	})

	scheduleHandler := handler.NewScheduleHandler(deps)
	jobHandler := handler.NewJobHandler(deps)
	invoiceHandler := handler.NewInvoiceHandler(deps)
	sopHandler := handler.NewSOPHandler(deps)
	productHandler := handler.NewProductHandler(deps)
	metricsHandler := handler.NewMetricsHandler(deps)
	syncHandler := handler.NewSyncHandler(deps)

	v1 := r.Group("/api/v1")
	{
		schedule := v1.Group("/schedule")
		{
			schedule.GET("/capacity", scheduleHandler.GetCapacity)
			schedule.GET("/board", scheduleHandler.GetBoard)
			schedule.GET("/queue", scheduleHandler.GetQueue)
			schedule.GET("/calendar", scheduleHandler.GetCalendar)
		}

		jobs := v1.Group("/jobs")
		{
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/:id", jobHandler.GetJob)
			jobs.PUT("/:id/status", jobHandler.UpdateStatus)
			jobs.POST("/:id/advance", jobHandler.Advance)
			jobs.POST("/:id/regress", jobHandler.Regress)
		}

		invoices := v1.Group("/invoices")
		{
			invoices.GET("", invoiceHandler.ListInvoices)
			invoices.POST("/:id/pay", invoiceHandler.Pay)
		}

		sops := v1.Group("/sops")
		{
			sops.GET("", sopHandler.ListSOPs)
			sops.GET("/:id", sopHandler.GetSOP)
			sops.PUT("/:id", sopHandler.Save)
		}

		v1.GET("/products", productHandler.ListProducts)

		metrics := v1.Group("/metrics")
		{
			metrics.GET("/production", metricsHandler.Production)
			metrics.GET("/revenue", metricsHandler.Revenue)
			metrics.GET("/customers/top", metricsHandler.TopCustomers)
		}

		v1.GET("/sync/status", syncHandler.Status)
	}

	return r
}

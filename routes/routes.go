package routes

import (
	"time"

	"catalogsync-backend/ai"
	"catalogsync-backend/handlers"
	"catalogsync-backend/mapper"
	"catalogsync-backend/matcher"
	"catalogsync-backend/middleware"
	"catalogsync-backend/parser"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRoutes(r *gin.Engine, db *gorm.DB, aiClient ai.Client) {
	authHandler := &handlers.AuthHandler{DB: db}
	productHandler := &handlers.ProductHandler{DB: db}

	analyzer := &mapper.FallbackAnalyzer{
		Primary:  mapper.NewAIAnalyzer(aiClient),
		Fallback: mapper.NewPatternAnalyzer(),
	}
	importHandler := handlers.NewImportHandler(db, parser.NewRegistry(), analyzer, matcher.NewMatcher(matcher.DefaultConflictPolicy()))

	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	api := r.Group("/api")
	{
		api.POST("/auth/register", authLimiter.Middleware(), authHandler.Register)
		api.POST("/auth/login", authLimiter.Middleware(), authHandler.Login)
		api.POST("/auth/refresh", authLimiter.Middleware(), authHandler.RefreshTokenHandler)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/auth/profile", authHandler.GetProfile)
	}

	// All catalog and import operations run in a merchant scope.
	merchant := api.Group("")
	merchant.Use(middleware.AuthMiddleware(), middleware.MerchantMiddleware())
	{
		merchant.GET("/products", productHandler.GetProducts)
		merchant.GET("/products/export", productHandler.ExportProducts)
		merchant.GET("/products/:id", productHandler.GetProduct)

		merchant.POST("/imports", importHandler.CreateSession)
		merchant.GET("/imports", importHandler.ListSessions)
		merchant.GET("/imports/:id", importHandler.GetSession)
		merchant.POST("/imports/:id/analyze", importHandler.AnalyzeSession)
		merchant.PUT("/imports/:id/mapping", importHandler.UpdateMapping)
		merchant.POST("/imports/:id/match", importHandler.MatchSession)
		merchant.GET("/imports/:id/items", importHandler.GetSessionItems)
		merchant.PATCH("/imports/:id/items/:itemId", importHandler.UpdateItem)
		merchant.POST("/imports/:id/items/:itemId/resolve", importHandler.ResolveConflict)
		merchant.POST("/imports/:id/approve-all", importHandler.ApproveAll)
		merchant.POST("/imports/:id/execute", importHandler.ExecuteSession)
		merchant.POST("/imports/:id/cancel", importHandler.CancelSession)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}

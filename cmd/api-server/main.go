package main

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/tuanle2204/BookSwap-Group07/internal/auth"
	"github.com/tuanle2204/BookSwap-Group07/internal/book"
	"github.com/tuanle2204/BookSwap-Group07/internal/health"
	"github.com/tuanle2204/BookSwap-Group07/internal/match"
	"github.com/tuanle2204/BookSwap-Group07/internal/message"
	"github.com/tuanle2204/BookSwap-Group07/internal/ranking"
	"github.com/tuanle2204/BookSwap-Group07/internal/review"
	"github.com/tuanle2204/BookSwap-Group07/internal/transaction"
	"github.com/tuanle2204/BookSwap-Group07/internal/user"
	"github.com/tuanle2204/BookSwap-Group07/pkg/config"
	"github.com/tuanle2204/BookSwap-Group07/pkg/database"
	"github.com/tuanle2204/BookSwap-Group07/pkg/logger"
	"github.com/tuanle2204/BookSwap-Group07/pkg/metrics"
)

func main() {
	// Load environment variables from .env if present (optional)
	_ = godotenv.Load()

	// Initialize logger
	logLevel := logger.INFO
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		logLevel = logger.LogLevel(level)
	}
	jsonFormat := os.Getenv("LOG_FORMAT") == "json"
	logger.Init(logLevel, jsonFormat, os.Stdout)

	log := logger.GetLogger().WithContext("component", "api_server")
	log.Info("starting_api_server", "version", "1.0.0")

	// Initialize database
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/bookswap.db"
	}

	if err := database.InitDatabase(dbPath); err != nil {
		log.Error("failed_to_initialize_database", "error", err.Error(), "path", dbPath)
		os.Exit(1)
	}
	defer database.Close()

	// Get JWT secret from environment or use default (change in production!)
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-this-in-production"
		log.Warn("using_default_jwt_secret", "message", "Set JWT_SECRET environment variable in production!")
	}

	// CRON_SECRET protects the scheduled ranking endpoints
	cronSecret := os.Getenv("CRON_SECRET")
	if cronSecret == "" {
		log.Warn("cron_secret_not_set", "message", "Admin ranking endpoints are disabled until CRON_SECRET is set")
	}

	// frontend URL from environment or use default
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
		log.Info("using_default_frontend_url", "url", frontendURL)
	}

	// Ranking configuration: optional yaml file + env overrides
	rankingCfg, err := ranking.LoadConfig(os.Getenv("RANKING_CONFIG"))
	if err != nil {
		log.Error("failed_to_load_ranking_config", "error", err.Error())
		os.Exit(1)
	}

	// Initialize handlers
	authHandler := auth.NewHandler(jwtSecret)
	bookHandler := book.NewHandler(nil)
	userHandler := user.NewHandler()
	matchHandler := match.NewHandler(match.NewService(database.DB))
	rankingService := ranking.NewService(database.DB, rankingCfg)
	rankingHandler := ranking.NewHandler(rankingService)
	transactionHandler := transaction.NewHandler()
	reviewHandler := review.NewHandler()
	messageHandler := message.NewHandler()
	healthHandler := health.NewHandler()

	// Setup Gin router
	router := gin.Default()

	// CORS middleware configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{frontendURL}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health and metrics endpoints
	router.GET("/healthz", healthHandler.Healthz)
	router.GET("/readyz", healthHandler.Readyz)
	router.GET("/health", healthHandler.Healthz)
	router.GET("/metrics", metrics.Handler)

	// Auth routes (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}
	// Protected account routes
	protectedAuth := router.Group("/auth")
	protectedAuth.Use(auth.AuthMiddleware(jwtSecret))
	{
		protectedAuth.POST("/logout", authHandler.Logout)
		protectedAuth.POST("/change-password", authHandler.ChangePassword)
	}

	// Book routes (public search, protected mutations)
	bookGroup := router.Group("/books")
	{
		bookGroup.GET("", bookHandler.SearchBooks)
		bookGroup.GET("/:id", bookHandler.GetBookByID)

		protected := bookGroup.Group("")
		protected.Use(auth.AuthMiddleware(jwtSecret))
		{
			protected.POST("", bookHandler.CreateBook)
			protected.PUT("/:id", bookHandler.UpdateBook)
			protected.DELETE("/:id", bookHandler.DeleteBook)
			protected.POST("/:id/promote", bookHandler.PromoteBook)
		}
	}

	// User routes
	userGroup := router.Group("/users")
	userGroup.Use(auth.AuthMiddleware(jwtSecret))
	{
		userGroup.GET("/me", userHandler.GetProfile)
		userGroup.PUT("/me", userHandler.UpdateProfile)
		userGroup.GET("/me/books", bookHandler.GetMyBooks)
		userGroup.GET("/:id", userHandler.GetPublicProfile)
		userGroup.GET("/wishlist", userHandler.GetWishlist)
		userGroup.POST("/wishlist", userHandler.AddWishlistItem)
		userGroup.PUT("/wishlist/reorder", userHandler.ReorderWishlist)
		userGroup.DELETE("/wishlist/:item_id", userHandler.RemoveWishlistItem)
		userGroup.POST("/:id/block", userHandler.BlockUser)
		userGroup.DELETE("/:id/block", userHandler.UnblockUser)
		userGroup.GET("/blocked", userHandler.GetBlockedUsers)
	}

	// Matching (protected; read-only)
	matchGroup := router.Group("/matches")
	matchGroup.Use(auth.AuthMiddleware(jwtSecret))
	{
		matchGroup.GET("", matchHandler.GetMatches)
	}

	// Transactions (protected)
	txGroup := router.Group("/transactions")
	txGroup.Use(auth.AuthMiddleware(jwtSecret))
	{
		txGroup.POST("", transactionHandler.CreateTransaction)
		txGroup.GET("", transactionHandler.GetMyTransactions)
		txGroup.GET("/:id", transactionHandler.GetTransactionByID)
		txGroup.PUT("/:id/status", transactionHandler.UpdateStatus)
	}

	// Reviews (protected create, public read)
	reviewGroup := router.Group("/reviews")
	{
		reviewGroup.GET("/user/:id", reviewHandler.GetUserReviews)

		protected := reviewGroup.Group("")
		protected.Use(auth.AuthMiddleware(jwtSecret))
		{
			protected.POST("", reviewHandler.CreateReview)
		}
	}

	// Messages (protected)
	messageGroup := router.Group("/messages")
	messageGroup.Use(auth.AuthMiddleware(jwtSecret))
	{
		messageGroup.POST("", messageHandler.SendMessage)
		messageGroup.GET("", messageHandler.GetInbox)
		messageGroup.GET("/:user_id", messageHandler.GetConversation)
	}

	// Rankings (public leaderboard, protected self lookup)
	rankingGroup := router.Group("/rankings")
	{
		rankingGroup.GET("/leaderboard", rankingHandler.GetLeaderboard)
		rankingGroup.GET("/users/:id", rankingHandler.GetUserRanking)

		protected := rankingGroup.Group("")
		protected.Use(auth.AuthMiddleware(jwtSecret))
		{
			protected.GET("/me", rankingHandler.GetMyRanking)
		}
	}

	// Scheduled/administrative triggers, bearer-token protected
	adminGroup := router.Group("/admin/rankings")
	adminGroup.Use(auth.AdminTokenMiddleware(cronSecret))
	{
		adminGroup.POST("/daily", rankingHandler.DailyUpdate)
		adminGroup.POST("/update", rankingHandler.DebugUpdate)
	}

	services := config.LoadServicesConfig()
	port := services.API.Port

	log.Info("api_server_listening", "port", port, "url", services.API.URL())
	if err := router.Run(":" + port); err != nil {
		log.Error("failed_to_start_api_server", "error", err.Error())
		os.Exit(1)
	}
}

package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/mlindgren/collab-todo-api/internal/config"
	"github.com/mlindgren/collab-todo-api/internal/constants"
	"github.com/mlindgren/collab-todo-api/internal/database"
	"github.com/mlindgren/collab-todo-api/internal/handlers"
	"github.com/mlindgren/collab-todo-api/internal/metrics"
	"github.com/mlindgren/collab-todo-api/internal/middleware"
	"github.com/mlindgren/collab-todo-api/internal/repository"
	"github.com/mlindgren/collab-todo-api/internal/services"
	"github.com/mlindgren/collab-todo-api/internal/watch"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.AddIndexes(db); err != nil {
		log.Fatalf("Failed to add indexes: %v", err)
	}

	// Redis backs both the session store and the change bus
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr(),
	})
	defer redisClient.Close()

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	store, err := redisStore.NewStore(
		10,              // Redis pool size
		"tcp",           // network type
		cfg.RedisAddr(), // Redis address from config
		"",              // username (empty for default user)
		"",              // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	r.Use(middleware.CollectRequests(collector))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	todoRepo := repository.NewTodoRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	// Change bus and subscription manager
	bus := watch.NewRedisBus(redisClient)
	watchManager := watch.NewManager(bus, todoRepo, projectRepo, invitationRepo, collector)

	// Services
	authService := services.NewAuthService(userRepo)
	googleService := services.NewGoogleAuthService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	projectService := services.NewProjectService(projectRepo, invitationRepo, userRepo, bus)
	todoService := services.NewTodoService(todoRepo, projectRepo, bus)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, googleService, cfg.BaseURL)
	todoHandler := handlers.NewTodoHandler(todoService, watchManager)
	projectHandler := handlers.NewProjectHandler(projectService, watchManager)
	invitationHandler := handlers.NewInvitationHandler(projectService, watchManager)
	categoryHandler := handlers.NewCategoryHandler()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Collab Todo API is running",
		})
	})

	// Prometheus endpoint
	r.GET("/metrics", gin.WrapH(metrics.Handler(registry)))

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
			auth.GET("/google/login", authHandler.GoogleLogin)
			auth.GET("/google/callback", authHandler.GoogleCallback)
		}

		// Category catalog (public)
		api.GET("/categories", categoryHandler.ListCategories)

		// Todo routes (protected)
		todos := api.Group("/todos")
		todos.Use(middleware.RequireAuth())
		{
			todos.GET("", todoHandler.ListTodos)
			todos.POST("", todoHandler.CreateTodo)
			todos.GET("/watch", todoHandler.WatchTodos)
			todos.PATCH("/:id", todoHandler.UpdateTodo)
			todos.DELETE("/:id", todoHandler.DeleteTodo)
			todos.POST("/:id/toggle", todoHandler.ToggleTodo)
			todos.POST("/:id/assign", todoHandler.AssignTodo)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth())
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/watch", projectHandler.WatchProjects)
			projects.GET("/:id", middleware.RequireProjectAccess(projectRepo), projectHandler.GetProject)
			projects.DELETE("/:id", middleware.RequireProjectAccess(projectRepo), middleware.RequireProjectOwner(), projectHandler.DeleteProject)
			projects.POST("/:id/invitations", middleware.RequireProjectAccess(projectRepo), middleware.RequireProjectOwner(), projectHandler.InviteToProject)
			projects.DELETE("/:id/members/:user_id", middleware.RequireProjectAccess(projectRepo), middleware.RequireProjectOwner(), projectHandler.RemoveMember)
		}

		// Invitation routes (protected)
		invitations := api.Group("/invitations")
		invitations.Use(middleware.RequireAuth())
		{
			invitations.GET("", invitationHandler.ListInvitations)
			invitations.GET("/watch", invitationHandler.WatchInvitations)
			invitations.POST("/:id/respond", invitationHandler.RespondInvitation)
		}
	}

	// Start server
	log.Printf("Server starting on %s", cfg.ServerAddr)
	if err := r.Run(cfg.ServerAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

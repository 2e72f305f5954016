package main

import (
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"hobbyshelf/internal/database"
	"hobbyshelf/internal/handlers"
	"hobbyshelf/internal/media"
	"hobbyshelf/internal/middleware"
	"hobbyshelf/internal/monitoring"
	"hobbyshelf/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, using process environment")
	}

	if err := utils.EnsureJWTReady(); err != nil {
		log.Fatal("Configuration error: ", err)
	}

	database.InitDB()
	defer database.CloseDB()
	database.CreateTables()

	router := gin.Default()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(monitoring.RequestMetricsMiddleware())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/api/status", handlers.Status)

	// Stored images are public once a client learns their path; access
	// control applies to the records referencing them.
	router.Static("/uploads", media.UploadsBasePath())

	auth := router.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
		auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
	}

	hobbies := router.Group("/hobbies", middleware.AuthMiddleware())
	{
		hobbies.POST("", handlers.CreateHobby)
		hobbies.GET("/me", handlers.GetMyHobbies)
		hobbies.GET("/public", handlers.GetPublicHobbies)
		hobbies.GET("/:id", handlers.GetHobby)
		hobbies.PUT("/:id", handlers.UpdateHobby)
		hobbies.DELETE("/:id", handlers.DeleteHobby)
	}

	tools := router.Group("/tools", middleware.AuthMiddleware())
	{
		tools.POST("", handlers.CreateTool)
		tools.GET("/me", handlers.GetMyTools)
		tools.GET("/hobby/:hobbyId", handlers.GetToolsByHobby)
		tools.GET("/:id", handlers.GetTool)
		tools.PUT("/:id", handlers.UpdateTool)
		tools.DELETE("/:id", handlers.DeleteTool)
	}

	users := router.Group("/users", middleware.AuthMiddleware())
	{
		users.PUT("/update", handlers.UpdateUser)
		users.PUT("/update-password", handlers.UpdatePassword)
		users.GET("/:id", handlers.GetUser)
		users.GET("/:id/hobbies", handlers.GetUserHobbies)
	}

	monitor := router.Group("/api/monitoring")
	{
		monitor.GET("/status", handlers.MonitoringStatus)
		monitor.GET("/storage", handlers.MonitoringStorage)
		monitor.GET("/users", handlers.MonitoringUsers)
		monitor.GET("/snapshot", handlers.MonitoringSnapshot)
	}

	address := ":" + resolvePort()
	log.Printf("Hobbyshelf API starting on %s", address)
	if err := router.Run(address); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}

func resolvePort() string {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		return "8080"
	}
	return port
}

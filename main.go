package main

import (
	"groombook-api/core/logger"
	"groombook-api/core/server"
)

// @title GroomBook API
// @version 1.0
// @description Backend for the GroomBook grooming salon, including Google Calendar synchronization
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@groombook.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:7070
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Example: "Bearer {token}"

func main() {
	if err := server.Run(); err != nil {
		logger.Error("Server:Run", "error", err)
	}
}

package main

import (
	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/taskforge/taskforge-api/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Warn("No .env file loaded")
	}

	ctx, err := context.NewCtx(
		&services.SqlService{},
		&services.RedisService{},
		&services.JWTService{},
		&services.RateLimitService{},
		&services.AuthService{},

		&services.HttpService{},
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure services")
		return
	}

	if err := ctx.Run(); err != nil {
		log.WithError(err).Fatal("Service runtime exited")
		return
	}
}

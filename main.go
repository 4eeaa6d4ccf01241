package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mankostas/asbuild-sub000/config"
	"github.com/mankostas/asbuild-sub000/models"
	"github.com/mankostas/asbuild-sub000/routes"
	"github.com/mankostas/asbuild-sub000/utils"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	log.Logger = logger

	settings, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	utils.SetJWTSecret(settings.JWTSecret)

	db := config.ConnectDB(settings)
	err = db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TaskType{},
		&models.TaskTypeVersion{},
		&models.TaskStatus{},
		&models.TaskSlaPolicy{},
		&models.Task{},
		&models.TaskSubtask{},
		&models.TaskAudit{},
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	r := routes.SetupRouter(db, settings.BoardGap, logger)
	if err := r.Run(settings.HTTPAddr); err != nil {
		logger.Fatal().Err(err).Msg("server")
	}
}

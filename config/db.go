package config

import (
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func ConnectDB(s *Settings) *gorm.DB {
	db, err := gorm.Open(mysql.Open(s.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Str("db", s.DBName).Msg("failed to connect to database")
	}
	return db
}

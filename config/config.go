package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Settings is the process configuration, sourced from the environment with
// the TASKFLOW_ prefix (TASKFLOW_DB_NAME, TASKFLOW_HTTP_ADDR, ...). Bare
// DB_NAME and JWT_SECRET are honored too for compatibility with existing
// deployments.
type Settings struct {
	DBHost     string `mapstructure:"db_host"`
	DBPort     int    `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	HTTPAddr   string `mapstructure:"http_addr"`
	JWTSecret  string `mapstructure:"jwt_secret"`
	BoardGap   int    `mapstructure:"board_gap"`
}

func Load() (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("TASKFLOW")
	v.AutomaticEnv()

	v.SetDefault("db_host", "127.0.0.1")
	v.SetDefault("db_port", 3306)
	v.SetDefault("db_user", "admin")
	v.SetDefault("db_password", "12345678")
	v.SetDefault("db_name", "taskdbgo")
	v.SetDefault("http_addr", ":8000")
	v.SetDefault("jwt_secret", "supersecretkey")
	v.SetDefault("board_gap", 1000)

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	// Unprefixed overrides used by older deployments and the test suite.
	plain := viper.New()
	plain.AutomaticEnv()
	if name := plain.GetString("DB_NAME"); name != "" {
		s.DBName = name
	}
	if secret := plain.GetString("JWT_SECRET"); secret != "" {
		s.JWTSecret = secret
	}
	return &s, nil
}

func (s *Settings) DSN() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		s.DBUser, s.DBPassword, s.DBHost, s.DBPort, s.DBName,
	)
}

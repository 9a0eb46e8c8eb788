package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envOverrides - переменные окружения поверх yaml. nil значит "не задано".
type envOverrides struct {
	ServerHost     *string        `envconfig:"SERVER_HOST"`
	ServerPort     *int           `envconfig:"SERVER_PORT"`
	ServerEnv      *string        `envconfig:"SERVER_ENV"`
	AllowedOrigins *string        `envconfig:"SERVER_ALLOWED_ORIGINS"`
	DBDriver       *string        `envconfig:"DATABASE_DRIVER"`
	DBURL          *string        `envconfig:"DATABASE_URL"`
	JWTSecret      *string        `envconfig:"JWT_SECRET"`
	JWTIssuer      *string        `envconfig:"JWT_ISSUER"`
	TypingIdle     *time.Duration `envconfig:"REALTIME_TYPING_IDLE"`
	LogFile        *string        `envconfig:"LOG_FILE"`
}

// loadDotEnv подхватывает .env из рабочей директории, если он есть.
// Уже выставленные переменные окружения не перезаписываются.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	if env.ServerHost != nil {
		cfg.Server.Host = *env.ServerHost
	}
	if env.ServerPort != nil {
		cfg.Server.Port = *env.ServerPort
	}
	if env.ServerEnv != nil {
		cfg.Server.Env = *env.ServerEnv
	}
	if env.AllowedOrigins != nil {
		cfg.Server.AllowedOrigins = splitList(*env.AllowedOrigins)
	}
	if env.DBDriver != nil {
		cfg.Database.Driver = *env.DBDriver
	}
	if env.DBURL != nil {
		cfg.Database.DSN = *env.DBURL
	}
	if env.JWTSecret != nil {
		cfg.JWT.Secret = *env.JWTSecret
	}
	if env.JWTIssuer != nil {
		cfg.JWT.Issuer = *env.JWTIssuer
	}
	if env.TypingIdle != nil {
		cfg.Realtime.TypingIdle = *env.TypingIdle
	}
	if env.LogFile != nil {
		cfg.Log.File = *env.LogFile
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

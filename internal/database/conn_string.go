package database

import (
	"fmt"
	"net/url"

	"github.com/flofmatrix/console-sync/internal/config"
)

// BuildConnString builds the PostgreSQL connection string for the
// session archive from config.
func BuildConnString(cfg config.DBConfig) string {
	// Passwords come in through env expansion and may carry
	// URL-reserved characters.
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

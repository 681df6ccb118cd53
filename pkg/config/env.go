package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override secrets and endpoints from the config file.
const (
	EnvMDMBaseURL      = "MDM_BASE_URL"
	EnvMDMClientID     = "MDM_CLIENT_ID"
	EnvMDMClientSecret = "MDM_CLIENT_SECRET"
	EnvPrinterURL      = "PRINTER_URL"
	EnvPrinterToken    = "PRINTER_TOKEN"
)

// LoadDotEnv loads an optional .env file from the working directory.
// Variables already present in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays non-empty environment values.
func (c *Config) ApplyEnv() {
	c.MDM.BaseURL = getEnv(EnvMDMBaseURL, c.MDM.BaseURL)
	c.MDM.ClientID = getEnv(EnvMDMClientID, c.MDM.ClientID)
	c.MDM.ClientSecret = getEnv(EnvMDMClientSecret, c.MDM.ClientSecret)
	c.Printer.URL = getEnv(EnvPrinterURL, c.Printer.URL)
	c.Printer.Token = getEnv(EnvPrinterToken, c.Printer.Token)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

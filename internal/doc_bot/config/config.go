package config

import (
	"fmt"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the application configuration parameters.
// Each field corresponds to an expected environment variable.
type Config struct {
	EnvLogsLevel       string `env:"LOG_LEVEL" envDefault:"info"`                                  // Log level for the application (e.g., DEBUG, INFO)
	EnvLogFileName     string `env:"LOG_FILE_NAME" envDefault:"DocBot.log"`                        // File's name for log
	EnvBotToken        string `env:"TOKEN_BOT"`                                                    // Telegram Bot Token for authentication with the Telegram API
	EnvDiskToken       string `env:"YANDEX_DISK_TOKEN"`                                            // OAuth token for the Yandex.Disk REST API
	EnvDiskEndpoint    string `env:"DISK_API_ENDPOINT" envDefault:"https://cloud-api.yandex.net/v1/disk"` // Base URL of the Yandex.Disk REST API
	EnvDiskHomePath    string `env:"YADISK_HOME_PATH"`                                             // Disk folder holding the templates and documents trees
	EnvAuthorizedUsers string `env:"AUTHORIZED_USERS_FILE" envDefault:"authorized_users.txt"`      // Flat file with authorized chat IDs, one per line
	EnvBindingsFile    string `env:"USER_TEMPLATES_FILE" envDefault:"user_templates.json"`         // JSON file mapping chat ID to the chosen template
	EnvLocalTemplates  string `env:"LOCAL_TEMPLATES_DIR" envDefault:"Templates"`                   // Local cache directory for downloaded templates
	EnvStagingDir      string `env:"STAGING_DIR"`                                                  // Directory for files staged before upload (defaults to os.TempDir)
}

// NewConfig initializes a new Config instance by loading environment variables from a .env file.
// It returns a pointer to the Config struct and an error if any of the required variables are missing.
func NewConfig() (*Config, error) {
	if err := godotenv.Load("bot.env"); err != nil {
		logrus.WithError(err).Warn("bot.env not loaded, relying on process environment")
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if config.EnvBotToken == "" {
		return nil, fmt.Errorf("TOKEN_BOT must be set")
	}
	if config.EnvDiskToken == "" {
		return nil, fmt.Errorf("YANDEX_DISK_TOKEN must be set")
	}
	if config.EnvDiskHomePath == "" {
		return nil, fmt.Errorf("YADISK_HOME_PATH must be set")
	}

	return config, nil
}

package commands

import (
	"database/sql"
	"fmt"
	"os"

	"obswatch/lib/captcha"
	"obswatch/lib/configutil"
	"obswatch/lib/sqliteutil"
	"obswatch/services/gradewatch"
	"obswatch/services/gradewatch/db"
	"obswatch/services/notify"
)

type GeminiConfig struct {
	ApiKey string   `json:"api_key" env:"GEMINI_API_KEY"`
	Models []string `json:"models"`
}

type TelegramConfig struct {
	BotToken string `json:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChatId   string `json:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

type Config struct {
	BaseUrl  string `json:"base_url" env:"OBS_BASE_URL"`
	Username string `json:"username" env:"OBS_USERNAME"`
	Password string `json:"password" env:"OBS_PASSWORD"`

	Database             string `json:"database"`
	CheckIntervalMinutes int    `json:"check_interval_minutes"`
	MaxLoginAttempts     int    `json:"max_login_attempts"`
	// defaults to true; grade corrections get re-notified
	RenotifyOnChange *bool `json:"renotify_on_change"`

	Gemini   GeminiConfig       `json:"gemini"`
	Telegram TelegramConfig     `json:"telegram"`
	Smtp     *notify.SmtpConfig `json:"smtp"`
}

func loadConfig() (Config, error) {
	// a missing file is fine as long as the environment provides
	// everything required
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	err = configutil.ApplyEnv(&cfg)
	if err != nil {
		return cfg, err
	}

	if cfg.BaseUrl == "" {
		return cfg, fmt.Errorf("base_url is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return cfg, fmt.Errorf("username and password are required")
	}
	if cfg.Gemini.ApiKey == "" {
		return cfg, fmt.Errorf("gemini.api_key is required")
	}
	if cfg.Database == "" {
		cfg.Database = "obswatch.db"
	}
	if cfg.CheckIntervalMinutes <= 0 {
		cfg.CheckIntervalMinutes = 30
	}
	return cfg, nil
}

func (c Config) notifier() (notify.Notifier, error) {
	var transports notify.Multi
	if c.Telegram.BotToken != "" {
		if c.Telegram.ChatId == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when a bot token is set")
		}
		transports = append(transports, notify.NewTelegramNotifier(notify.TelegramOptions{
			BotToken: c.Telegram.BotToken,
			ChatId:   c.Telegram.ChatId,
		}))
	}
	if c.Smtp != nil {
		transports = append(transports, notify.NewEmailNotifier(*c.Smtp))
	}
	if len(transports) == 0 {
		return nil, fmt.Errorf("no notification transport configured, set telegram or smtp")
	}
	return transports, nil
}

func (c Config) service() (*gradewatch.Service, *sql.DB, error) {
	notifier, err := c.notifier()
	if err != nil {
		return nil, nil, err
	}

	database, err := sqliteutil.OpenDB(db.Schema, c.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	renotify := true
	if c.RenotifyOnChange != nil {
		renotify = *c.RenotifyOnChange
	}
	service := gradewatch.NewService(database, notifier, gradewatch.Options{
		BaseUrl:  c.BaseUrl,
		Username: c.Username,
		Password: c.Password,
		Solver: captcha.NewGeminiSolver(captcha.GeminiOptions{
			ApiKey: c.Gemini.ApiKey,
			Models: c.Gemini.Models,
		}),
		MaxLoginAttempts: c.MaxLoginAttempts,
		RenotifyOnChange: renotify,
	})
	return service, database, nil
}

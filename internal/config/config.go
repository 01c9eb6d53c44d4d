package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Sheets struct {
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		Credentials     string `yaml:"credentials"`
		RequestsTable   string `yaml:"requests_table"`
		StoresTable     string `yaml:"stores_table"`
		AttendanceTable string `yaml:"attendance_table"`
		JobQueueTable   string `yaml:"jobqueue_table"`
	} `yaml:"sheets"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Cache struct {
		RequestsTTLSeconds int `yaml:"requests_ttl_seconds"`
		StoresTTLSeconds   int `yaml:"stores_ttl_seconds"`
	} `yaml:"cache"`

	Booking struct {
		DaysAhead       int `yaml:"days_ahead"`
		TimeStepMinutes int `yaml:"time_step_minutes"`
	} `yaml:"booking"`

	Reminders struct {
		DayBeforeHour       int     `yaml:"day_before_hour"`
		CatchupDelaySeconds int     `yaml:"catchup_delay_seconds"`
		SendRate            float64 `yaml:"send_rate"`
		SendBurst           int     `yaml:"send_burst"`
	} `yaml:"reminders"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Timezone string `yaml:"timezone"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("config: telegram.bot_token is required")
	}
	if cfg.Sheets.SpreadsheetID == "" {
		return nil, fmt.Errorf("config: sheets.spreadsheet_id is required")
	}

	if cfg.Sheets.RequestsTable == "" {
		cfg.Sheets.RequestsTable = "Requests"
	}
	if cfg.Sheets.StoresTable == "" {
		cfg.Sheets.StoresTable = "Stores"
	}
	if cfg.Sheets.AttendanceTable == "" {
		cfg.Sheets.AttendanceTable = "Attendance"
	}
	if cfg.Sheets.JobQueueTable == "" {
		cfg.Sheets.JobQueueTable = "JobQueue"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Europe/Kyiv"
	}

	return &cfg, nil
}

func (c *Config) RequestsTTL() time.Duration {
	if c.Cache.RequestsTTLSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.Cache.RequestsTTLSeconds) * time.Second
}

func (c *Config) StoresTTL() time.Duration {
	if c.Cache.StoresTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Cache.StoresTTLSeconds) * time.Second
}

func (c *Config) BookingDaysAhead() int {
	if c.Booking.DaysAhead <= 0 {
		return 10
	}
	return c.Booking.DaysAhead
}

func (c *Config) TimeStep() time.Duration {
	if c.Booking.TimeStepMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Booking.TimeStepMinutes) * time.Minute
}

func (c *Config) RemindHour() int {
	if c.Reminders.DayBeforeHour <= 0 || c.Reminders.DayBeforeHour > 23 {
		return 18
	}
	return c.Reminders.DayBeforeHour
}

func (c *Config) CatchupDelay() time.Duration {
	if c.Reminders.CatchupDelaySeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Reminders.CatchupDelaySeconds) * time.Second
}

func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

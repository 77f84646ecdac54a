package config

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/avesier/menurota/internal/domain"
)

// Config holds all configuration for the menurota application.
// Values are loaded from environment variables; see printUsage() for the full list.
type Config struct {
	DatabaseURL string `json:"database_url"`
	RedisAddr   string `json:"redis_addr,omitempty"`
	HTTPAddr    string `json:"http_addr"`

	// Schedule shape: how occurrence instants are generated.
	ScheduleFrequency string `json:"schedule_frequency"`
	ScheduleWeekday   string `json:"schedule_weekday"`
	ScheduleMonthDay  int    `json:"schedule_month_day"`
	ScheduleTime      string `json:"schedule_time"`
	ScheduleTimezone  string `json:"schedule_timezone"`

	// RunSpec is the cron expression driving the due-entry sweep.
	RunSpec      string `json:"run_spec"`
	RunBatchSize int    `json:"run_batch_size"`

	LeaseTTL    time.Duration `json:"-"`
	LeaseTTLStr string        `json:"lease_ttl"`

	HistoryLimit  int `json:"history_limit"`
	SlotMaxProbes int `json:"slot_max_probes"`

	CatalogURL        string        `json:"catalog_url"`
	CatalogToken      string        `json:"catalog_token,omitempty"`
	CatalogTimeout    time.Duration `json:"-"`
	CatalogTimeoutStr string        `json:"catalog_timeout"`

	DBOpTimeout    time.Duration `json:"-"`
	DBOpTimeoutStr string        `json:"db_op_timeout"`

	DBMaxOpenConns       int           `json:"db_max_open_conns"`
	DBMaxIdleConns       int           `json:"db_max_idle_conns"`
	DBConnMaxLifetime    time.Duration `json:"-"`
	DBConnMaxLifetimeStr string        `json:"db_conn_max_lifetime"`
	DBConnMaxIdleTime    time.Duration `json:"-"`
	DBConnMaxIdleTimeStr string        `json:"db_conn_max_idle_time"`

	HTTPShutdownTimeout    time.Duration `json:"-"`
	HTTPShutdownTimeoutStr string        `json:"http_shutdown_timeout"`

	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path"`
	MetricsPort    string `json:"metrics_port"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	cfg := Config{
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		HTTPAddr:               os.Getenv("HTTP_ADDR"),
		ScheduleFrequency:      strings.ToLower(os.Getenv("SCHEDULE_FREQUENCY")),
		ScheduleWeekday:        strings.ToLower(os.Getenv("SCHEDULE_WEEKDAY")),
		ScheduleTime:           os.Getenv("SCHEDULE_TIME"),
		ScheduleTimezone:       os.Getenv("SCHEDULE_TIMEZONE"),
		RunSpec:                os.Getenv("RUN_SPEC"),
		LeaseTTLStr:            os.Getenv("LEASE_TTL"),
		CatalogURL:             os.Getenv("CATALOG_URL"),
		CatalogToken:           os.Getenv("CATALOG_TOKEN"),
		CatalogTimeoutStr:      os.Getenv("CATALOG_TIMEOUT"),
		DBOpTimeoutStr:         os.Getenv("DB_OP_TIMEOUT"),
		DBConnMaxLifetimeStr:   os.Getenv("DB_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTimeStr:   os.Getenv("DB_CONN_MAX_IDLE_TIME"),
		HTTPShutdownTimeoutStr: os.Getenv("HTTP_SHUTDOWN_TIMEOUT"),
		MetricsEnabled:         os.Getenv("METRICS_ENABLED") == "true",
		MetricsPath:            os.Getenv("METRICS_PATH"),
		MetricsPort:            os.Getenv("METRICS_PORT"),
	}

	if dayStr := os.Getenv("SCHEDULE_MONTH_DAY"); dayStr != "" {
		if n, err := parseInt(dayStr); err == nil && n >= 1 && n <= 31 {
			cfg.ScheduleMonthDay = n
		} else {
			log.Printf("config: invalid SCHEDULE_MONTH_DAY %q (must be 1-31), using default 1", dayStr)
		}
	}
	if cfg.ScheduleMonthDay == 0 {
		cfg.ScheduleMonthDay = 1
	}

	if batchStr := os.Getenv("RUN_BATCH_SIZE"); batchStr != "" {
		if n, err := parseInt(batchStr); err == nil && n > 0 {
			cfg.RunBatchSize = n
		} else {
			log.Printf("config: invalid RUN_BATCH_SIZE %q (must be a positive integer), using default 5", batchStr)
		}
	}
	if cfg.RunBatchSize == 0 {
		cfg.RunBatchSize = 5
	}

	if limitStr := os.Getenv("HISTORY_LIMIT"); limitStr != "" {
		if n, err := parseInt(limitStr); err == nil && n > 0 {
			cfg.HistoryLimit = n
		} else {
			log.Printf("config: invalid HISTORY_LIMIT %q (must be a positive integer), using default 60", limitStr)
		}
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = 60
	}

	if probesStr := os.Getenv("SLOT_MAX_PROBES"); probesStr != "" {
		if n, err := parseInt(probesStr); err == nil && n > 0 {
			cfg.SlotMaxProbes = n
		} else {
			log.Printf("config: invalid SLOT_MAX_PROBES %q (must be a positive integer), using default 366", probesStr)
		}
	}
	if cfg.SlotMaxProbes == 0 {
		cfg.SlotMaxProbes = 366
	}

	if maxOpenStr := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpenStr != "" {
		if n, err := parseInt(maxOpenStr); err == nil && n > 0 {
			cfg.DBMaxOpenConns = n
		}
	}
	if cfg.DBMaxOpenConns == 0 {
		cfg.DBMaxOpenConns = 25
	}

	if maxIdleStr := os.Getenv("DB_MAX_IDLE_CONNS"); maxIdleStr != "" {
		if n, err := parseInt(maxIdleStr); err == nil && n > 0 {
			cfg.DBMaxIdleConns = n
		}
	}
	if cfg.DBMaxIdleConns == 0 {
		cfg.DBMaxIdleConns = 5
	}

	// Support Railway's PORT variable as fallback for HTTP_ADDR.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}
	if cfg.ScheduleFrequency == "" {
		cfg.ScheduleFrequency = "weekly"
	}
	if cfg.ScheduleWeekday == "" {
		cfg.ScheduleWeekday = "monday"
	}
	if cfg.ScheduleTime == "" {
		cfg.ScheduleTime = "07:00"
	}
	if cfg.ScheduleTimezone == "" {
		cfg.ScheduleTimezone = "UTC"
	}
	if cfg.RunSpec == "" {
		cfg.RunSpec = "@every 1m"
	}
	if cfg.LeaseTTLStr == "" {
		cfg.LeaseTTLStr = "5m"
	}
	if cfg.CatalogTimeoutStr == "" {
		cfg.CatalogTimeoutStr = "10s"
	}
	if cfg.DBOpTimeoutStr == "" {
		cfg.DBOpTimeoutStr = "5s"
	}
	if cfg.DBConnMaxLifetimeStr == "" {
		cfg.DBConnMaxLifetimeStr = "30m"
	}
	if cfg.DBConnMaxIdleTimeStr == "" {
		cfg.DBConnMaxIdleTimeStr = "5m"
	}
	if cfg.HTTPShutdownTimeoutStr == "" {
		cfg.HTTPShutdownTimeoutStr = "10s"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.MetricsPort == "" {
		cfg.MetricsPort = "9090"
	}

	// Parse durations; validation is handled separately by Validate().
	if d, err := time.ParseDuration(cfg.LeaseTTLStr); err == nil {
		cfg.LeaseTTL = d
	}
	if d, err := time.ParseDuration(cfg.CatalogTimeoutStr); err == nil {
		cfg.CatalogTimeout = d
	}
	if d, err := time.ParseDuration(cfg.DBOpTimeoutStr); err == nil {
		cfg.DBOpTimeout = d
	}
	if d, err := time.ParseDuration(cfg.DBConnMaxLifetimeStr); err == nil {
		cfg.DBConnMaxLifetime = d
	}
	if d, err := time.ParseDuration(cfg.DBConnMaxIdleTimeStr); err == nil {
		cfg.DBConnMaxIdleTime = d
	}
	if d, err := time.ParseDuration(cfg.HTTPShutdownTimeoutStr); err == nil {
		cfg.HTTPShutdownTimeout = d
	}

	return cfg
}

// weekdayNames maps the accepted SCHEDULE_WEEKDAY values.
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Schedule builds the recurrence configuration from the SCHEDULE_* fields.
// Unparseable pieces fall back to their defaults; Validate() reports them.
func (c Config) Schedule() domain.ScheduleConfig {
	sc := domain.DefaultScheduleConfig()

	switch c.ScheduleFrequency {
	case "daily":
		sc.Frequency = domain.FrequencyDaily
	case "weekly":
		sc.Frequency = domain.FrequencyWeekly
	case "monthly":
		sc.Frequency = domain.FrequencyMonthly
	}

	if wd, ok := weekdayNames[c.ScheduleWeekday]; ok {
		sc.Weekday = wd
	}
	if c.ScheduleMonthDay >= 1 && c.ScheduleMonthDay <= 31 {
		sc.MonthDay = c.ScheduleMonthDay
	}
	if h, m, ok := parseClock(c.ScheduleTime); ok {
		sc.Hour, sc.Minute = h, m
	}
	if loc, err := time.LoadLocation(c.ScheduleTimezone); err == nil {
		sc.Location = loc
	}

	return sc.Normalize()
}

// parseClock parses "HH:MM" into an hour and minute.
func parseClock(s string) (hour, minute int, ok bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := parseInt(parts[0])
	if err != nil || h > 23 {
		return 0, 0, false
	}
	m, err := parseInt(parts[1])
	if err != nil || m > 59 || len(parts[1]) != 2 {
		return 0, 0, false
	}
	return h, m, true
}

// parseInt parses a string as an integer.
func parseInt(s string) (int, error) {
	if s == "" {
		return 0, os.ErrInvalid
	}
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, os.ErrInvalid
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := struct {
		DatabaseURL         string `json:"database_url"`
		RedisAddr           string `json:"redis_addr,omitempty"`
		HTTPAddr            string `json:"http_addr"`
		ScheduleFrequency   string `json:"schedule_frequency"`
		ScheduleWeekday     string `json:"schedule_weekday"`
		ScheduleMonthDay    int    `json:"schedule_month_day"`
		ScheduleTime        string `json:"schedule_time"`
		ScheduleTimezone    string `json:"schedule_timezone"`
		RunSpec             string `json:"run_spec"`
		RunBatchSize        int    `json:"run_batch_size"`
		LeaseTTL            string `json:"lease_ttl"`
		HistoryLimit        int    `json:"history_limit"`
		SlotMaxProbes       int    `json:"slot_max_probes"`
		CatalogURL          string `json:"catalog_url"`
		CatalogToken        string `json:"catalog_token,omitempty"`
		CatalogTimeout      string `json:"catalog_timeout"`
		DBOpTimeout         string `json:"db_op_timeout"`
		DBMaxOpenConns      int    `json:"db_max_open_conns"`
		DBMaxIdleConns      int    `json:"db_max_idle_conns"`
		DBConnMaxLifetime   string `json:"db_conn_max_lifetime"`
		DBConnMaxIdleTime   string `json:"db_conn_max_idle_time"`
		HTTPShutdownTimeout string `json:"http_shutdown_timeout"`
		MetricsEnabled      bool   `json:"metrics_enabled"`
		MetricsPath         string `json:"metrics_path"`
		MetricsPort         string `json:"metrics_port"`
	}{
		DatabaseURL:         maskSecret(c.DatabaseURL),
		RedisAddr:           c.RedisAddr,
		HTTPAddr:            c.HTTPAddr,
		ScheduleFrequency:   c.ScheduleFrequency,
		ScheduleWeekday:     c.ScheduleWeekday,
		ScheduleMonthDay:    c.ScheduleMonthDay,
		ScheduleTime:        c.ScheduleTime,
		ScheduleTimezone:    c.ScheduleTimezone,
		RunSpec:             c.RunSpec,
		RunBatchSize:        c.RunBatchSize,
		LeaseTTL:            c.LeaseTTLStr,
		HistoryLimit:        c.HistoryLimit,
		SlotMaxProbes:       c.SlotMaxProbes,
		CatalogURL:          c.CatalogURL,
		CatalogToken:        maskToken(c.CatalogToken),
		CatalogTimeout:      c.CatalogTimeoutStr,
		DBOpTimeout:         c.DBOpTimeoutStr,
		DBMaxOpenConns:      c.DBMaxOpenConns,
		DBMaxIdleConns:      c.DBMaxIdleConns,
		DBConnMaxLifetime:   c.DBConnMaxLifetimeStr,
		DBConnMaxIdleTime:   c.DBConnMaxIdleTimeStr,
		HTTPShutdownTimeout: c.HTTPShutdownTimeoutStr,
		MetricsEnabled:      c.MetricsEnabled,
		MetricsPath:         c.MetricsPath,
		MetricsPort:         c.MetricsPort,
	}
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret masks a secret value, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(s, scheme) {
			return scheme + "***"
		}
	}
	return "***"
}

// maskToken masks a bearer token entirely.
func maskToken(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

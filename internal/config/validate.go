package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// runSpecParser accepts standard five-field expressions plus descriptors
// like "@every 1m" and "@hourly".
var runSpecParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	// DATABASE_URL is required
	if cfg.DatabaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "DATABASE_URL",
			Message: "required",
		})
	}

	// CATALOG_URL is required and must be an http(s) URL
	if cfg.CatalogURL == "" {
		errs = append(errs, ValidationError{
			Field:   "CATALOG_URL",
			Message: "required",
		})
	} else if err := validateHTTPURL(cfg.CatalogURL); err != nil {
		errs = append(errs, ValidationError{
			Field:   "CATALOG_URL",
			Message: err.Error(),
		})
	}

	switch cfg.ScheduleFrequency {
	case "daily", "weekly", "monthly":
	default:
		errs = append(errs, ValidationError{
			Field:   "SCHEDULE_FREQUENCY",
			Message: fmt.Sprintf("must be 'daily', 'weekly' or 'monthly', got %q", cfg.ScheduleFrequency),
		})
	}

	if _, ok := weekdayNames[cfg.ScheduleWeekday]; !ok {
		errs = append(errs, ValidationError{
			Field:   "SCHEDULE_WEEKDAY",
			Message: fmt.Sprintf("unknown weekday %q", cfg.ScheduleWeekday),
		})
	}

	if cfg.ScheduleMonthDay < 1 || cfg.ScheduleMonthDay > 31 {
		errs = append(errs, ValidationError{
			Field:   "SCHEDULE_MONTH_DAY",
			Message: fmt.Sprintf("must be 1-31, got %d", cfg.ScheduleMonthDay),
		})
	}

	if _, _, ok := parseClock(cfg.ScheduleTime); !ok {
		errs = append(errs, ValidationError{
			Field:   "SCHEDULE_TIME",
			Message: fmt.Sprintf("must be HH:MM, got %q", cfg.ScheduleTime),
		})
	}

	if _, err := time.LoadLocation(cfg.ScheduleTimezone); err != nil {
		errs = append(errs, ValidationError{
			Field:   "SCHEDULE_TIMEZONE",
			Message: fmt.Sprintf("unknown timezone: %v", err),
		})
	}

	if _, err := runSpecParser.Parse(cfg.RunSpec); err != nil {
		errs = append(errs, ValidationError{
			Field:   "RUN_SPEC",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}

	// LEASE_TTL must be a valid positive duration
	if cfg.LeaseTTLStr != "" {
		d, err := time.ParseDuration(cfg.LeaseTTLStr)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "LEASE_TTL",
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		} else if d <= 0 {
			errs = append(errs, ValidationError{
				Field:   "LEASE_TTL",
				Message: "must be positive",
			})
		}
	}

	// CATALOG_TIMEOUT must be a valid positive duration
	if cfg.CatalogTimeoutStr != "" {
		d, err := time.ParseDuration(cfg.CatalogTimeoutStr)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "CATALOG_TIMEOUT",
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		} else if d <= 0 {
			errs = append(errs, ValidationError{
				Field:   "CATALOG_TIMEOUT",
				Message: "must be positive",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/leonletto/threadtrack/internal/logx"
)

// MaxDesktopExpire bounds notify.desktop.expire.
const MaxDesktopExpire = 24 * time.Hour

// ParseDurationField parses a non-negative Go duration. Empty yields 0.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def for empty or zero.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	for _, f := range []struct{ path, raw string }{
		{"default_interval", c.DefaultInterval},
		{"api.timeout", c.API.Timeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			errs = append(errs, err)
		}
	}
	if d, err := ParseDurationField("notify.desktop.expire", c.Notify.Desktop.Expire); err != nil {
		errs = append(errs, err)
	} else if d > MaxDesktopExpire {
		errs = append(errs, fmt.Errorf("notify.desktop.expire: must be at most %s", MaxDesktopExpire))
	}

	if c.HasBackend("telegram") {
		if strings.TrimSpace(c.Notify.Telegram.Token) == "" {
			errs = append(errs, errors.New("notify.telegram.token: required when the telegram backend is enabled"))
		}
		if c.Notify.Telegram.ChatID == 0 {
			errs = append(errs, errors.New("notify.telegram.chat_id: required when the telegram backend is enabled"))
		}
	}

	if s := strings.TrimSpace(c.Expiry.SweepSchedule); s != "" {
		if _, err := cron.ParseStandard(s); err != nil {
			errs = append(errs, fmt.Errorf("expiry.sweep_schedule: %w", err))
		}
	}

	if !logx.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

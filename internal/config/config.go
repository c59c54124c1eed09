package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Window is one named reminder band, in hours before the deadline.
// Both bounds are inclusive.
type Window struct {
	Name  string  `mapstructure:"name"`
	Lower float64 `mapstructure:"lower"`
	Upper float64 `mapstructure:"upper"`
}

// Identity is one sender persona. MatchTags are matched case-insensitively
// as substrings against a booking's location tag; the first identity in the
// list acts as the default when nothing matches.
type Identity struct {
	Name         string   `mapstructure:"name"`
	FromName     string   `mapstructure:"from_name"`
	FromEmail    string   `mapstructure:"from_email"`
	SMTPPassword string   `mapstructure:"smtp_password"`
	MatchTags    []string `mapstructure:"match_tags"`
}

// SMTP holds connection settings shared by all sender identities.
type SMTP struct {
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Reports configures the periodic tabular report jobs.
type Reports struct {
	DocsTeam      []string `mapstructure:"docs_team"`
	DocsCopy      []string `mapstructure:"docs_copy"`
	ReferenceHour int      `mapstructure:"reference_hour"` // local hour anchoring the pending-SI lookahead
}

// Config is the immutable process-wide configuration, read once at startup.
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	HTTPAddr     string `mapstructure:"http_addr"`
	APIKeySecret string `mapstructure:"api_key_secret"`
	APIKeyHash   string `mapstructure:"api_key_hash"` // empty disables operator auth

	DatabaseDSN string `mapstructure:"database_dsn"`
	Timezone    string `mapstructure:"timezone"`

	PollInterval time.Duration `mapstructure:"poll_interval"`
	Windows      []Window      `mapstructure:"windows"`
	Identities   []Identity    `mapstructure:"identities"`

	SMTP               SMTP   `mapstructure:"smtp"`
	ResendAPIKey       string `mapstructure:"resend_api_key"`
	SendGridAPIKey     string `mapstructure:"sendgrid_api_key"`
	ConstrainedNetwork bool   `mapstructure:"constrained_network"` // outbound SMTP blocked, try HTTP providers first

	RabbitURL    string   `mapstructure:"rabbit_url"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
	KafkaGroupID string   `mapstructure:"kafka_group_id"`
	RedisAddr    string   `mapstructure:"redis_addr"`

	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Reports      Reports `mapstructure:"reports"`
}

// Load reads configuration from the optional config file and from
// NOTIFIER_* environment variables. Values are fixed for the process
// lifetime; there is no hot reload.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("notifier")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/freight-notifier")
	}

	v.SetEnvPrefix("NOTIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional; env vars alone are a valid setup.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8090")
	v.SetDefault("api_key_secret", "")
	v.SetDefault("api_key_hash", "")
	v.SetDefault("database_dsn", "")
	v.SetDefault("timezone", "Asia/Kolkata")
	v.SetDefault("poll_interval", time.Hour)
	v.SetDefault("windows", []map[string]any{
		{"name": "48h", "lower": 47.5, "upper": 48.5},
		{"name": "24h", "lower": 23.5, "upper": 24.5},
	})
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.timeout", 10*time.Second)
	v.SetDefault("resend_api_key", "")
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("constrained_network", false)
	v.SetDefault("rabbit_url", "")
	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("kafka_topic", "booking-events")
	v.SetDefault("kafka_group_id", "freight-notifier")
	v.SetDefault("redis_addr", "")
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("reports.docs_team", []string{})
	v.SetDefault("reports.docs_copy", []string{})
	v.SetDefault("reports.reference_hour", 18)
}

func (c *Config) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	for i, w := range c.Windows {
		if w.Name == "" {
			return fmt.Errorf("windows[%d] is missing a name", i)
		}
		if w.Lower > w.Upper {
			return fmt.Errorf("window %q has lower bound %v above upper bound %v", w.Name, w.Lower, w.Upper)
		}
	}
	// Overlapping windows would fire a record twice in one tick.
	for i := range c.Windows {
		for j := i + 1; j < len(c.Windows); j++ {
			a, b := c.Windows[i], c.Windows[j]
			if a.Lower <= b.Upper && b.Lower <= a.Upper {
				return fmt.Errorf("windows %q and %q overlap", a.Name, b.Name)
			}
		}
	}
	return nil
}

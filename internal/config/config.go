package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/bher20/slotariff/internal/cron"
	"github.com/bher20/slotariff/internal/logging"
	"github.com/bher20/slotariff/internal/tariff"
)

type Config struct {
	Server   Server         `yaml:"server"`
	Timezone string         `yaml:"timezone" env:"SLOTARIFF_TIMEZONE" env-default:"Europe/Ljubljana"`
	Refresh  Refresh        `yaml:"refresh"`
	Storage  Storage        `yaml:"storage"`
	Supplier string         `yaml:"supplier" env:"SLOTARIFF_SUPPLIER" env-default:"other"`
	Prices   Prices         `yaml:"prices"`
	Logging  logging.Config `yaml:"logging"`
	Webhook  Webhook        `yaml:"webhook"`
	Email    Email          `yaml:"email"`
	Auth     Auth           `yaml:"auth"`
}

type Server struct {
	Listen string `yaml:"listen" env:"SLOTARIFF_LISTEN" env-default:":8000"`
}

type Refresh struct {
	// Interval is integer seconds or a cron expression.
	Interval string `yaml:"interval" env:"SLOTARIFF_REFRESH_INTERVAL" env-default:"60"`
}

type Storage struct {
	Driver      string `yaml:"driver" env:"SLOTARIFF_DB_DRIVER" env-default:"memory"`
	DSN         string `yaml:"dsn" env:"SLOTARIFF_DB_DSN"`
	AutoMigrate bool   `yaml:"auto_migrate" env:"SLOTARIFF_AUTO_MIGRATE"`
	// Schema picks how AutoMigrate builds tables: "goose" applies the
	// versioned migrations, "auto" lets the backend create them directly.
	Schema string `yaml:"schema" env:"SLOTARIFF_DB_SCHEMA" env-default:"goose"`
}

// Prices are the operator-entered prices in EUR/kWh. They seed the price
// store on first start; later updates go through the API. Unset fields keep
// the values from DefaultPrices.
type Prices struct {
	EnergyPeak    float64 `yaml:"energy_peak" env:"SLOTARIFF_ENERGY_PEAK_PRICE"`
	EnergyOffPeak float64 `yaml:"energy_offpeak" env:"SLOTARIFF_ENERGY_OFFPEAK_PRICE"`
	Block1        float64 `yaml:"block_1" env:"SLOTARIFF_BLOCK_1_PRICE"`
	Block2        float64 `yaml:"block_2" env:"SLOTARIFF_BLOCK_2_PRICE"`
	Block3        float64 `yaml:"block_3" env:"SLOTARIFF_BLOCK_3_PRICE"`
	Block4        float64 `yaml:"block_4" env:"SLOTARIFF_BLOCK_4_PRICE"`
	Block5        float64 `yaml:"block_5" env:"SLOTARIFF_BLOCK_5_PRICE"`
	Contributions float64 `yaml:"contributions" env:"SLOTARIFF_CONTRIBUTIONS_PRICE"`
	ExciseTax     float64 `yaml:"excise_tax" env:"SLOTARIFF_EXCISE_TAX_PRICE"`
}

type Webhook struct {
	URL     string        `yaml:"url" env:"SLOTARIFF_WEBHOOK_URL"`
	Type    string        `yaml:"type" env:"SLOTARIFF_WEBHOOK_TYPE"`
	Timeout time.Duration `yaml:"timeout" env:"SLOTARIFF_WEBHOOK_TIMEOUT" env-default:"10s"`
}

// Email mails price updates and other events through smtp, sendgrid or resend.
type Email struct {
	Provider    string   `yaml:"provider" env:"SLOTARIFF_EMAIL_PROVIDER"`
	Host        string   `yaml:"host" env:"SLOTARIFF_EMAIL_HOST"`
	Port        int      `yaml:"port" env:"SLOTARIFF_EMAIL_PORT" env-default:"587"`
	Encryption  string   `yaml:"encryption" env:"SLOTARIFF_EMAIL_ENCRYPTION" env-default:"tls"`
	Username    string   `yaml:"username" env:"SLOTARIFF_EMAIL_USERNAME"`
	Password    string   `yaml:"password" env:"SLOTARIFF_EMAIL_PASSWORD"`
	APIKey      string   `yaml:"api_key" env:"SLOTARIFF_EMAIL_API_KEY"`
	FromAddress string   `yaml:"from_address" env:"SLOTARIFF_EMAIL_FROM"`
	FromName    string   `yaml:"from_name" env:"SLOTARIFF_EMAIL_FROM_NAME" env-default:"slotariff"`
	To          []string `yaml:"to" env:"SLOTARIFF_EMAIL_TO" env-separator:","`
	// Events lists the event types to mail; empty means prices_updated.
	Events []string `yaml:"events" env:"SLOTARIFF_EMAIL_EVENTS" env-separator:","`
}

type Auth struct {
	Tokens []Token `yaml:"tokens"`
	// AdminTokenHash adds an admin token from the environment.
	AdminTokenHash string `yaml:"admin_token_hash" env:"SLOTARIFF_ADMIN_TOKEN_HASH"`
}

// Token is an API token identified by the bcrypt hash of its secret.
type Token struct {
	Name      string     `yaml:"name"`
	Role      string     `yaml:"role"`
	Hash      string     `yaml:"hash"`
	ExpiresAt *time.Time `yaml:"expires_at"`
}

var drivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true, "postgrespool": true}

// Load reads path (YAML) when given, then applies environment overrides,
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Config{Prices: DefaultPrices()}
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() (*Config, error) {
	return Load("")
}

// Validate reports every configuration error at once.
func (c *Config) Validate() error {
	var err error
	if _, e := time.LoadLocation(c.Timezone); e != nil {
		err = multierr.Append(err, fmt.Errorf("timezone %q: %w", c.Timezone, e))
	}
	if _, e := cron.Parse(c.Refresh.Interval); e != nil {
		err = multierr.Append(err, fmt.Errorf("refresh.interval: %w", e))
	}
	if !drivers[c.Storage.Driver] {
		err = multierr.Append(err, fmt.Errorf("unsupported storage driver %q", c.Storage.Driver))
	}
	if c.Storage.Schema != "goose" && c.Storage.Schema != "auto" {
		err = multierr.Append(err, fmt.Errorf("unsupported storage schema %q", c.Storage.Schema))
	}
	if e := c.Prices.Table().Validate(); e != nil {
		err = multierr.Append(err, e)
	}
	switch c.Webhook.Type {
	case "", "slack", "discord", "generic":
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported webhook type %q", c.Webhook.Type))
	}
	switch c.Email.Provider {
	case "":
	case "smtp", "gmail", "sendgrid", "resend":
		if c.Email.FromAddress == "" || len(c.Email.To) == 0 {
			err = multierr.Append(err, fmt.Errorf("email: from_address and to are required"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported email provider %q", c.Email.Provider))
	}
	for _, t := range c.Auth.Tokens {
		if t.Hash == "" || t.Role == "" {
			err = multierr.Append(err, fmt.Errorf("auth token %q needs a hash and a role", t.Name))
		}
	}
	return err
}

// Location returns the configured time zone; call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DefaultPrices mirrors tariff.DefaultPrices in configuration form.
func DefaultPrices() Prices {
	d := tariff.DefaultPrices()
	return Prices{
		EnergyPeak:    d.EnergyPeak.InexactFloat64(),
		EnergyOffPeak: d.EnergyOffPeak.InexactFloat64(),
		Block1:        d.NetworkBlock[1].InexactFloat64(),
		Block2:        d.NetworkBlock[2].InexactFloat64(),
		Block3:        d.NetworkBlock[3].InexactFloat64(),
		Block4:        d.NetworkBlock[4].InexactFloat64(),
		Block5:        d.NetworkBlock[5].InexactFloat64(),
		Contributions: d.Contributions.InexactFloat64(),
		ExciseTax:     d.ExciseTax.InexactFloat64(),
	}
}

// Table converts the configured prices into a tariff.PriceTable.
func (p Prices) Table() tariff.PriceTable {
	return tariff.PriceTable{
		EnergyPeak:    decimal.NewFromFloat(p.EnergyPeak),
		EnergyOffPeak: decimal.NewFromFloat(p.EnergyOffPeak),
		NetworkBlock: map[tariff.Block]decimal.Decimal{
			1: decimal.NewFromFloat(p.Block1),
			2: decimal.NewFromFloat(p.Block2),
			3: decimal.NewFromFloat(p.Block3),
			4: decimal.NewFromFloat(p.Block4),
			5: decimal.NewFromFloat(p.Block5),
		},
		Contributions: decimal.NewFromFloat(p.Contributions),
		ExciseTax:     decimal.NewFromFloat(p.ExciseTax),
	}
}

// AllTokens returns the configured tokens plus the environment admin token.
func (a Auth) AllTokens() []Token {
	out := append([]Token(nil), a.Tokens...)
	if a.AdminTokenHash != "" {
		out = append(out, Token{Name: "env-admin", Role: "admin", Hash: a.AdminTokenHash})
	}
	return out
}

/*
Package config loads server configuration.

SOURCES (later wins):
  1. Built-in defaults (setDefaults)
  2. Optional YAML file passed to Load
  3. .env file in the working directory, when present
  4. Environment variables prefixed STIPENDS_, with "." replaced by "_"
     e.g. STIPENDS_DATABASE_DSN, STIPENDS_INCENTIVE_WEEKEND_RATE

EXAMPLE (config.yaml):
  server:
    port: 8080
  database:
    driver: sqlite3
    dsn: ./data/stipends.db
  incentive:
    weekday_rate: "100"
    weekend_rate: "150"
  kollel:
    auto_recalculate: false
    programs:
      - id: kollel
        name: Kollel
        start: "08:30"
        end: "10:30"
        minutes_per_day: 120
        monthly_salary: "1000"
  scheduler:
    enabled: true
    cron: "0 0 2 * * *"
*/
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/warp/stipend-engine/generic"
	"github.com/warp/stipend-engine/incentive"
	"github.com/warp/stipend-engine/kollel"
	"github.com/warp/stipend-engine/logger"
)

const EnvPrefix = "STIPENDS"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   logger.Config   `mapstructure:"logging"`
	Incentive IncentiveConfig `mapstructure:"incentive"`
	Kollel    KollelConfig    `mapstructure:"kollel"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite3|postgres|memory
	DSN    string `mapstructure:"dsn"`
}

type IncentiveConfig struct {
	ProgramID   string `mapstructure:"program_id"`
	ProgramName string `mapstructure:"program_name"`
	WeekdayRate string `mapstructure:"weekday_rate"`
	WeekendRate string `mapstructure:"weekend_rate"`
}

type KollelConfig struct {
	Programs        []KollelProgram `mapstructure:"programs"`
	AutoRecalculate bool            `mapstructure:"auto_recalculate"`
}

type KollelProgram struct {
	ID            string `mapstructure:"id"`
	Name          string `mapstructure:"name"`
	Start         string `mapstructure:"start"`
	End           string `mapstructure:"end"`
	MinutesPerDay int    `mapstructure:"minutes_per_day"`
	MonthlySalary string `mapstructure:"monthly_salary"`
}

type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"` // with seconds field
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://localhost:8080"})

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "stipends.db")

	log := logger.DefaultConfig()
	v.SetDefault("logging.level", log.Level)
	v.SetDefault("logging.format", log.Format)
	v.SetDefault("logging.output", log.Output)
	v.SetDefault("logging.file", log.File)
	v.SetDefault("logging.max_size_mb", log.MaxSizeMB)
	v.SetDefault("logging.max_backups", log.MaxBackups)
	v.SetDefault("logging.max_age_days", log.MaxAgeDays)
	v.SetDefault("logging.compress", log.Compress)

	rates := incentive.DefaultRates()
	v.SetDefault("incentive.program_id", string(incentive.DefaultProgramID))
	v.SetDefault("incentive.program_name", "Handler")
	v.SetDefault("incentive.weekday_rate", rates.Weekday.String())
	v.SetDefault("incentive.weekend_rate", rates.Weekend.String())

	programs := kollel.DefaultPrograms()
	defaults := make([]map[string]any, len(programs))
	for i, p := range programs {
		defaults[i] = map[string]any{
			"id":              string(p.ID),
			"name":            p.Name,
			"start":           p.Start.String(),
			"end":             p.End.String(),
			"minutes_per_day": p.MinutesPerDay,
			"monthly_salary":  p.MonthlySalary.String(),
		}
	}
	v.SetDefault("kollel.programs", defaults)
	v.SetDefault("kollel.auto_recalculate", false)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.cron", "0 0 2 * * *")
}

// Load reads configuration. path may be empty to use defaults and the
// environment only.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.Wrap(err, "failed to load .env")
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks everything that can be checked without a database.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return generic.Invalid("server.port", "%d is out of range", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres", "memory":
	default:
		return generic.Invalid("database.driver", "unsupported driver %q", c.Database.Driver)
	}
	if _, err := c.IncentiveEngineConfig(); err != nil {
		return err
	}
	if _, err := c.KollelEngineConfig(); err != nil {
		return err
	}
	return nil
}

// IncentiveEngineConfig converts the incentive section.
func (c *Config) IncentiveEngineConfig() (incentive.Config, error) {
	weekday, err := parseAmount("incentive.weekday_rate", c.Incentive.WeekdayRate)
	if err != nil {
		return incentive.Config{}, err
	}
	weekend, err := parseAmount("incentive.weekend_rate", c.Incentive.WeekendRate)
	if err != nil {
		return incentive.Config{}, err
	}
	rates := incentive.Rates{Weekday: weekday, Weekend: weekend}
	if err := rates.Validate(); err != nil {
		return incentive.Config{}, err
	}
	return incentive.Config{
		ProgramID:   generic.ProgramID(c.Incentive.ProgramID),
		ProgramName: c.Incentive.ProgramName,
		Rates:       &rates,
	}, nil
}

// KollelEngineConfig converts the kollel section.
func (c *Config) KollelEngineConfig() (kollel.Config, error) {
	programs := make([]kollel.Program, 0, len(c.Kollel.Programs))
	for _, p := range c.Kollel.Programs {
		start, err := generic.ParseClock(p.Start)
		if err != nil {
			return kollel.Config{}, errors.Wrapf(err, "kollel program %s", p.ID)
		}
		end, err := generic.ParseClock(p.End)
		if err != nil {
			return kollel.Config{}, errors.Wrapf(err, "kollel program %s", p.ID)
		}
		salary, err := parseAmount("kollel.programs.monthly_salary", p.MonthlySalary)
		if err != nil {
			return kollel.Config{}, errors.Wrapf(err, "kollel program %s", p.ID)
		}
		program := kollel.Program{
			ID:            generic.ProgramID(p.ID),
			Name:          p.Name,
			Start:         start,
			End:           end,
			MinutesPerDay: p.MinutesPerDay,
			MonthlySalary: salary,
		}
		if err := program.Validate(); err != nil {
			return kollel.Config{}, err
		}
		programs = append(programs, program)
	}
	return kollel.Config{Programs: programs, AutoRecalculate: c.Kollel.AutoRecalculate}, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, generic.Invalid(field, "%q is not a decimal amount", s)
	}
	return d, nil
}

// Package config reads the service configuration from the environment once
// at startup. Values may also come from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ascendpay/ascendpay-backend/pkg/common/validate"
)

// Config is the complete service configuration.
type Config struct {
	// DatabaseURIBase is the address tenant ids are appended to.
	DatabaseURIBase string `env:"DATABASE_URI_BASE" validate:"required,url"`
	Port            int    `env:"PORT" validate:"min=1,max=65535"`
	ServiceName     string `env:"SERVICE_NAME" validate:"required"`
	LogLevel        string `env:"LOG_LEVEL" validate:"oneof=debug info warn warning error"`

	OTELExporterEndpoint  string  `env:"OTEL_EXPORTER_ENDPOINT"`
	OTELSampleProbability float64 `env:"OTEL_SAMPLE_PROBABILITY" validate:"gte=0,lte=1"`

	TenantPoolMinConns   int32         `env:"TENANT_POOL_MIN_CONNS" validate:"gte=0"`
	TenantPoolMaxConns   int32         `env:"TENANT_POOL_MAX_CONNS" validate:"gte=1,gtefield=TenantPoolMinConns"`
	TenantConnectTimeout time.Duration `env:"TENANT_CONNECT_TIMEOUT" validate:"gt=0s,lte=5m"`
	TenantMigrationsPath string        `env:"TENANT_MIGRATIONS_PATH"`
	BootstrapTenants     []string      `env:"BOOTSTRAP_TENANTS" validate:"dive,required"`

	CORSOrigins   []string `env:"CORS_ORIGINS"`
	DebugStatsviz bool     `env:"DEBUG_STATSVIZ"`
}

// Defaults returns the configuration used for unset variables.
func Defaults() Config {
	return Config{
		Port:                  3000,
		ServiceName:           "ascendpay-backend",
		LogLevel:              "info",
		OTELSampleProbability: 0.1,
		TenantPoolMinConns:    0,
		TenantPoolMaxConns:    10,
		TenantConnectTimeout:  10 * time.Second,
		BootstrapTenants:      []string{"fnb"},
	}
}

// LookupFunc reads one variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load reads .env files (missing ones are skipped) into the process
// environment without overriding variables that are already set, then builds
// the configuration from the environment.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds and validates the configuration using lookup.
func FromLookup(lookup LookupFunc) (Config, error) {
	cfg := Defaults()
	p := parser{lookup: lookup}

	p.str("DATABASE_URI_BASE", &cfg.DatabaseURIBase)
	p.integer("PORT", &cfg.Port)
	p.str("SERVICE_NAME", &cfg.ServiceName)
	p.str("LOG_LEVEL", &cfg.LogLevel)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	p.str("OTEL_EXPORTER_ENDPOINT", &cfg.OTELExporterEndpoint)
	p.float("OTEL_SAMPLE_PROBABILITY", &cfg.OTELSampleProbability)
	p.i32("TENANT_POOL_MIN_CONNS", &cfg.TenantPoolMinConns)
	p.i32("TENANT_POOL_MAX_CONNS", &cfg.TenantPoolMaxConns)
	p.duration("TENANT_CONNECT_TIMEOUT", &cfg.TenantConnectTimeout)
	p.str("TENANT_MIGRATIONS_PATH", &cfg.TenantMigrationsPath)
	p.csv("BOOTSTRAP_TENANTS", &cfg.BootstrapTenants)
	p.csv("CORS_ORIGINS", &cfg.CORSOrigins)
	p.boolean("DEBUG_STATSVIZ", &cfg.DebugStatsviz)

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}

	v, err := validate.New()
	if err != nil {
		return Config{}, err
	}
	if err := v.Check(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	lookup LookupFunc
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key, raw string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, raw, err))
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) integer(key string, dst *int) {
	if v, ok := p.get(key); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = i
	}
}

func (p *parser) i32(key string, dst *int32) {
	if v, ok := p.get(key); ok {
		i, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = int32(i)
	}
}

func (p *parser) float(key string, dst *float64) {
	if v, ok := p.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (p *parser) boolean(key string, dst *bool) {
	if v, ok := p.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (p *parser) duration(key string, dst *time.Duration) {
	if v, ok := p.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = d
	}
}

func (p *parser) csv(key string, dst *[]string) {
	raw, ok := p.lookup(key)
	if !ok {
		return
	}
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

// Package config reads the orglisting settings from the environment and
// optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Geocoding providers.
const (
	GeocoderPostcodesIO = "postcodesio"
	GeocoderGoogle      = "google"
)

// DefaultEnvFiles are loaded, when present, before parsing the environment.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config holds every setting of the CLI and the widget API.
type Config struct {
	APIBase string `env:"ORGLISTING_API_BASE" envDefault:"https://api.streetsupport.net/v2/service-provider-locations" validate:"required,url"`

	Geocoder         string `env:"ORGLISTING_GEOCODER"      envDefault:"postcodesio"              validate:"oneof=postcodesio google"`
	PostcodesURL     string `env:"ORGLISTING_POSTCODES_URL" envDefault:"https://api.postcodes.io" validate:"required,url"`
	GoogleMapsAPIKey string `env:"GOOGLE_MAPS_API_KEY"`
	GoogleProject    string `env:"GOOGLE_CLOUD_PROJECT"`
	GeocodingRegion  string `env:"ORGLISTING_REGION" envDefault:"uk"`

	StateDir        string `env:"ORGLISTING_STATE_DIR"        envDefault:".orglisting" validate:"required"`
	DefaultPostcode string `env:"ORGLISTING_DEFAULT_POSTCODE"`

	PageSize int    `env:"ORGLISTING_PAGE_SIZE" envDefault:"8"     validate:"gt=0,lte=1000"`
	Range    int    `env:"ORGLISTING_RANGE"     envDefault:"10000" validate:"oneof=1000 2000 5000 10000 20000"`
	Unit     string `env:"ORGLISTING_UNIT"      envDefault:"km"    validate:"oneof=km miles"`

	UserAgent   string        `env:"ORGLISTING_USER_AGENT"`
	HTTPTimeout time.Duration `env:"ORGLISTING_HTTP_TIMEOUT" envDefault:"30s" validate:"gt=0"`

	Addr     string `env:"ORGLISTING_ADDR" envDefault:"localhost:8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL"       envDefault:"info"           validate:"oneof=panic fatal error warn warning info debug trace"`
}

// LoadEnv loads the env files that exist and returns how many were found.
// Variables already set in the environment win.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}

	if len(existing) == 0 {
		return 0, nil
	}

	return len(existing), godotenv.Load(existing...)
}

// Load reads envFiles, parses the environment and validates the result.
// version fills the default user agent.
func Load(version string, envFiles ...string) (*Config, error) {
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("loading env files: %w", err)
	}

	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if c.UserAgent == "" {
		c.UserAgent = "orglisting/" + version
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by the variable that sets them
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
		if name == "" {
			return f.Name
		}

		return name
	})

	return v
}

// Validate checks every setting and reports all the invalid ones.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}

		errs = append(errs, fmt.Errorf("invalid %s=%q: must satisfy %s", fe.Field(), fmt.Sprint(fe.Value()), rule))
	}

	return errors.Join(errs...)
}

// LogrusLevel is the parsed LOG_LEVEL.
func (c *Config) LogrusLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}

	return level
}

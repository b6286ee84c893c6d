package appconf

import (
	"fmt"
	"strings"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps the -env flag value to an Environment.
func EnvFlagToEnvironment(env string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "development", "dev":
		return Development, nil
	case "test":
		return Test, nil
	case "production", "prod":
		return Production, nil
	default:
		return Development, fmt.Errorf("unknown environment %q", env)
	}
}

// Config holds the effective service configuration after every source has
// been applied.
type Config struct {
	Port       int         `yaml:"port" validate:"min=1,max=65535"`
	Env        Environment `yaml:"-"`
	EnvName    string      `yaml:"env" validate:"omitempty,oneof=development dev test production prod"`
	DataPath   string      `yaml:"data-path" validate:"required"`
	Cities     []string    `yaml:"cities" validate:"min=1,dive,required"`
	RateLimit  int         `yaml:"rate-limit" validate:"min=0"`
	Verbose    bool        `yaml:"verbose"`
	ApiKeys    []string    `yaml:"api-keys"`
	CORSOrigin string      `yaml:"cors-origin"`

	// ExemptApiKeys skip rate limiting. They still have to be valid ApiKeys
	// when keys are required.
	ExemptApiKeys []string `yaml:"exempt-api-keys"`

	SearchRadiusMeters           float64 `yaml:"search-radius-meters" validate:"gt=0"`
	DeparturesPerStop            int     `yaml:"departures-per-stop" validate:"min=1"`
	MaxDestinationDistanceMeters float64 `yaml:"max-destination-distance-meters" validate:"min=0"`
}

const redactedValue = "***REDACTED***"

// Redacted returns a copy of c with every API key replaced, for display.
func (c Config) Redacted() Config {
	c.ApiKeys = redactList(c.ApiKeys)
	c.ExemptApiKeys = redactList(c.ExemptApiKeys)
	return c
}

func redactList(keys []string) []string {
	if len(keys) == 0 {
		return keys
	}
	out := make([]string, len(keys))
	for i := range out {
		out[i] = redactedValue
	}
	return out
}

// SupportsCity reports whether city is one of the configured cities, ignoring case.
func (c Config) SupportsCity(city string) bool {
	for _, supported := range c.Cities {
		if strings.EqualFold(strings.TrimSpace(supported), city) {
			return true
		}
	}
	return false
}

package appconf

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load. Flags override them.
const (
	EnvPort                   = "DEPARTURES_PORT"
	EnvEnvironment            = "DEPARTURES_ENV"
	EnvDataPath               = "DEPARTURES_DATA_PATH"
	EnvCities                 = "DEPARTURES_CITIES"
	EnvRateLimit              = "DEPARTURES_RATE_LIMIT"
	EnvAPIKeys                = "DEPARTURES_API_KEYS"
	EnvExemptAPIKeys          = "DEPARTURES_EXEMPT_API_KEYS"
	EnvCORSOrigin             = "DEPARTURES_CORS_ORIGIN"
	EnvSearchRadius           = "DEPARTURES_SEARCH_RADIUS"
	EnvDeparturesPerStop      = "DEPARTURES_PER_STOP"
	EnvMaxDestinationDistance = "DEPARTURES_MAX_DESTINATION_DISTANCE"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:               4000,
		Env:                Development,
		EnvName:            Development.String(),
		DataPath:           "./trips.sqlite",
		Cities:             []string{"wroclaw"},
		RateLimit:          100,
		CORSOrigin:         "*",
		SearchRadiusMeters: 1000,
		DeparturesPerStop:  3,
	}
}

// LoadResult carries the loaded configuration plus the flags that only
// affect process behavior.
type LoadResult struct {
	Config     Config
	DumpConfig bool
}

// Load builds the configuration from defaults, an optional YAML file, the
// environment (including a .env file in the working directory) and finally
// command-line flags, then validates it.
func Load(args []string) (LoadResult, error) {
	// a missing .env is the normal case
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return LoadResult{}, fmt.Errorf("error reading .env: %w", err)
	}

	fset := flag.NewFlagSet("departures", flag.ContinueOnError)
	configPath := fset.String("config", "", "Path to a YAML configuration file")
	port := fset.Int("port", 0, "API server port")
	env := fset.String("env", "", "Environment (development|test|production)")
	dataPath := fset.String("data-path", "", "Path to the SQLite database holding the GTFS tables")
	cities := fset.String("cities", "", "Comma-separated list of supported city names")
	rateLimit := fset.Int("rate-limit", -1, "Requests per second per client (0 blocks all requests)")
	apiKeys := fset.String("api-keys", "", "Comma-separated API keys; when set every request must carry one in ?key=")
	exemptKeys := fset.String("exempt-api-keys", "", "Comma-separated API keys that are not rate limited")
	verbose := fset.Bool("verbose", false, "Enable debug logging")
	dump := fset.Bool("dump-config", false, "Print the effective configuration as JSON and exit")
	if err := fset.Parse(args); err != nil {
		return LoadResult{}, err
	}

	cfg := Default()
	if *configPath != "" {
		if err := applyYAMLFile(&cfg, *configPath); err != nil {
			return LoadResult{}, err
		}
	}
	if err := applyEnvironment(&cfg); err != nil {
		return LoadResult{}, err
	}

	if *port != 0 {
		cfg.Port = *port
	}
	if *env != "" {
		cfg.EnvName = *env
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
	}
	if *cities != "" {
		cfg.Cities = ParseList(*cities)
	}
	if *rateLimit >= 0 {
		cfg.RateLimit = *rateLimit
	}
	if *apiKeys != "" {
		cfg.ApiKeys = ParseList(*apiKeys)
	}
	if *exemptKeys != "" {
		cfg.ExemptApiKeys = ParseList(*exemptKeys)
	}
	if *verbose {
		cfg.Verbose = true
	}

	environment, err := EnvFlagToEnvironment(cfg.EnvName)
	if err != nil {
		return LoadResult{}, err
	}
	cfg.Env = environment

	if err := Validate(cfg); err != nil {
		return LoadResult{}, err
	}

	return LoadResult{Config: cfg, DumpConfig: *dump}, nil
}

// Validate checks the struct tags on cfg.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func applyYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnvironment(cfg *Config) error {
	if v := os.Getenv(EnvPort); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvPort, v)
		}
		cfg.Port = p
	}
	if v := os.Getenv(EnvEnvironment); v != "" {
		cfg.EnvName = v
	}
	if v := os.Getenv(EnvDataPath); v != "" {
		cfg.DataPath = v
	}
	if v := os.Getenv(EnvCities); v != "" {
		cfg.Cities = ParseList(v)
	}
	if v := os.Getenv(EnvRateLimit); v != "" {
		r, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvRateLimit, v)
		}
		cfg.RateLimit = r
	}
	if v := os.Getenv(EnvAPIKeys); v != "" {
		cfg.ApiKeys = ParseList(v)
	}
	if v := os.Getenv(EnvExemptAPIKeys); v != "" {
		cfg.ExemptApiKeys = ParseList(v)
	}
	if v := os.Getenv(EnvCORSOrigin); v != "" {
		cfg.CORSOrigin = v
	}
	if v := os.Getenv(EnvSearchRadius); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvSearchRadius, v)
		}
		cfg.SearchRadiusMeters = f
	}
	if v := os.Getenv(EnvDeparturesPerStop); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvDeparturesPerStop, v)
		}
		cfg.DeparturesPerStop = n
	}
	if v := os.Getenv(EnvMaxDestinationDistance); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvMaxDestinationDistance, v)
		}
		cfg.MaxDestinationDistanceMeters = f
	}
	return nil
}

// ParseList splits a comma-separated string, trimming whitespace and
// dropping empty entries. Returns an empty slice for empty input.
func ParseList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

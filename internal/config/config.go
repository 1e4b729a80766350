package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
// Values load from the environment with the TAXI prefix, optionally
// seeded from a .env file and a config.yaml next to the binary.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Fetch    FetchConfig    `yaml:"fetch" envconfig:"FETCH"`
	Weather  WeatherConfig  `yaml:"weather" envconfig:"WEATHER"`
}

// ServerConfig contains HTTP server configuration for the table server.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pipeline.log"`
}

// PathsConfig contains the file system layout configuration.
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// PipelineConfig carries the policy constants of the audit and
// aggregation stages. Defaults reproduce the congestion-pricing study
// period: data-quality cutoff 2023, surcharge policy live from 2024,
// comparison years 2024 vs 2025.
type PipelineConfig struct {
	QualityCutoffYear int      `yaml:"quality_cutoff_year" envconfig:"QUALITY_CUTOFF_YEAR" default:"2023" validate:"min=2000"`
	PolicyCutoffYear  int      `yaml:"policy_cutoff_year" envconfig:"POLICY_CUTOFF_YEAR" default:"2024" validate:"min=2000"`
	BaselineYear      int      `yaml:"baseline_year" envconfig:"BASELINE_YEAR" default:"2024" validate:"min=2000"`
	ComparisonYear    int      `yaml:"comparison_year" envconfig:"COMPARISON_YEAR" default:"2025" validate:"min=2000"`
	TargetBorough     string   `yaml:"target_borough" envconfig:"TARGET_BOROUGH" default:"Manhattan" validate:"required"`
	ExcludedZoneNames []string `yaml:"excluded_zone_names" envconfig:"EXCLUDED_ZONE_NAMES" default:"Harlem,Inwood,Washington Heights"`
	SpeedLimitMPH     float64  `yaml:"speed_limit_mph" envconfig:"SPEED_LIMIT_MPH" default:"65" validate:"gt=0"`
	MinDurationMin    float64  `yaml:"min_duration_minutes" envconfig:"MIN_DURATION_MINUTES" default:"1"`
	SuspiciousFare    float64  `yaml:"suspicious_fare" envconfig:"SUSPICIOUS_FARE" default:"20"`

	ImputeTargetPeriod string  `yaml:"impute_target_period" envconfig:"IMPUTE_TARGET_PERIOD" default:"2025-12"`
	ImputeEarlyYear    int     `yaml:"impute_early_year" envconfig:"IMPUTE_EARLY_YEAR" default:"2023"`
	ImputeLateYear     int     `yaml:"impute_late_year" envconfig:"IMPUTE_LATE_YEAR" default:"2024"`
	ImputeEarlyWeight  float64 `yaml:"impute_early_weight" envconfig:"IMPUTE_EARLY_WEIGHT" default:"0.3" validate:"gte=0,lte=1"`
	ImputeLateWeight   float64 `yaml:"impute_late_weight" envconfig:"IMPUTE_LATE_WEIGHT" default:"0.7" validate:"gte=0,lte=1"`

	AggregationWorkers int           `yaml:"aggregation_workers" envconfig:"AGGREGATION_WORKERS" default:"4" validate:"min=1"`
	RunInterval        time.Duration `yaml:"run_interval" envconfig:"RUN_INTERVAL" default:"24h"`
}

// FetchConfig contains source-download configuration.
type FetchConfig struct {
	ListingURL     string        `yaml:"listing_url" envconfig:"LISTING_URL" default:"https://www.nyc.gov/site/tlc/about/tlc-trip-record-data.page" validate:"url"`
	TripDataURL    string        `yaml:"trip_data_url" envconfig:"TRIP_DATA_URL" default:"https://d37ci6vzurychx.cloudfront.net/trip-data" validate:"url"`
	ZoneLookupURL  string        `yaml:"zone_lookup_url" envconfig:"ZONE_LOOKUP_URL" default:"https://d37ci6vzurychx.cloudfront.net/misc/taxi_zone_lookup.csv" validate:"url"`
	TargetYear     int           `yaml:"target_year" envconfig:"TARGET_YEAR" default:"2025"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"5m"`
	RequestsPerSec float64       `yaml:"requests_per_sec" envconfig:"REQUESTS_PER_SEC" default:"2" validate:"gt=0"`
}

// WeatherConfig pins the daily precipitation series: one fixed point
// (Central Park) over one fixed date range.
type WeatherConfig struct {
	BaseURL   string  `yaml:"base_url" envconfig:"BASE_URL" default:"https://archive-api.open-meteo.com/v1/archive" validate:"url"`
	Latitude  float64 `yaml:"latitude" envconfig:"LATITUDE" default:"40.7812"`
	Longitude float64 `yaml:"longitude" envconfig:"LONGITUDE" default:"-73.9665"`
	StartDate string  `yaml:"start_date" envconfig:"START_DATE" default:"2024-01-01"`
	EndDate   string  `yaml:"end_date" envconfig:"END_DATE" default:"2025-12-31"`
	Timezone  string  `yaml:"timezone" envconfig:"TIMEZONE" default:"America/New_York"`
}

// Load loads configuration from a .env file (if present), an optional
// YAML config file, and the environment. Environment values win over
// file values.
func Load() (*Config, error) {
	// Best effort; a missing .env is the normal case outside dev.
	_ = godotenv.Load()

	var cfg Config
	if configFile := findConfigFile(); configFile != "" {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
		}
		cfg = *fileCfg
	}

	if err := envconfig.Process("TAXI", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Pipeline.PolicyCutoffYear < c.Pipeline.QualityCutoffYear {
		return fmt.Errorf("policy cutoff year %d precedes quality cutoff year %d",
			c.Pipeline.PolicyCutoffYear, c.Pipeline.QualityCutoffYear)
	}
	if sum := c.Pipeline.ImputeEarlyWeight + c.Pipeline.ImputeLateWeight; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("imputation weights must sum to 1, got %.3f", sum)
	}
	return nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// findConfigFile returns the first config file found in the common
// locations, or "" to run on env vars and defaults alone.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns the default configuration without consulting the
// environment. Used by tests and as a fallback when Load fails early.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/pipeline.log",
		},
		Paths: PathsConfig{
			DataDir: "data",
			LogsDir: "logs",
		},
		Pipeline: PipelineConfig{
			QualityCutoffYear:  2023,
			PolicyCutoffYear:   2024,
			BaselineYear:       2024,
			ComparisonYear:     2025,
			TargetBorough:      "Manhattan",
			ExcludedZoneNames:  []string{"Harlem", "Inwood", "Washington Heights"},
			SpeedLimitMPH:      65,
			MinDurationMin:     1,
			SuspiciousFare:     20,
			ImputeTargetPeriod: "2025-12",
			ImputeEarlyYear:    2023,
			ImputeLateYear:     2024,
			ImputeEarlyWeight:  0.3,
			ImputeLateWeight:   0.7,
			AggregationWorkers: 4,
			RunInterval:        24 * time.Hour,
		},
		Fetch: FetchConfig{
			ListingURL:     "https://www.nyc.gov/site/tlc/about/tlc-trip-record-data.page",
			TripDataURL:    "https://d37ci6vzurychx.cloudfront.net/trip-data",
			ZoneLookupURL:  "https://d37ci6vzurychx.cloudfront.net/misc/taxi_zone_lookup.csv",
			TargetYear:     2025,
			RequestTimeout: 5 * time.Minute,
			RequestsPerSec: 2,
		},
		Weather: WeatherConfig{
			BaseURL:   "https://archive-api.open-meteo.com/v1/archive",
			Latitude:  40.7812,
			Longitude: -73.9665,
			StartDate: "2024-01-01",
			EndDate:   "2025-12-31",
			Timezone:  "America/New_York",
		},
	}
}

package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Census  CensusConfig  `yaml:"census" mapstructure:"census"`
	Transit TransitConfig `yaml:"transit" mapstructure:"transit"`
	Beats   BeatsConfig   `yaml:"beats" mapstructure:"beats"`
	Places  PlacesConfig  `yaml:"places" mapstructure:"places"`
	Routes  RoutesConfig  `yaml:"routes" mapstructure:"routes"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// BatchConfig configures the batch scheduler.
type BatchConfig struct {
	Size              int `yaml:"size" mapstructure:"size"`
	DelaySeconds      int `yaml:"delay_seconds" mapstructure:"delay_seconds"`
	SourceTimeoutSecs int `yaml:"source_timeout_secs" mapstructure:"source_timeout_secs"`
}

// CensusConfig configures the Census median-income source.
type CensusConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	GeocoderURL string `yaml:"geocoder_url" mapstructure:"geocoder_url"`
	ACSBaseURL  string `yaml:"acs_base_url" mapstructure:"acs_base_url"`
	Year        int    `yaml:"year" mapstructure:"year"`
}

// TransitConfig configures the MTD bus-stop source.
type TransitConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	MaxStops int    `yaml:"max_stops" mapstructure:"max_stops"`
}

// BeatsConfig configures the police-beat source. When ShapefilePath is set
// the beat lookup runs locally against the shapefile polygons instead of
// querying the ArcGIS layer per record.
type BeatsConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	LayerURL      string `yaml:"layer_url" mapstructure:"layer_url"`
	ShapefilePath string `yaml:"shapefile_path" mapstructure:"shapefile_path"`
}

// PlacesConfig configures the Google Places amenity-count source.
type PlacesConfig struct {
	Enabled    bool                `yaml:"enabled" mapstructure:"enabled"`
	APIKey     string              `yaml:"api_key" mapstructure:"api_key"`
	BaseURL    string              `yaml:"base_url" mapstructure:"base_url"`
	RadiusM    int                 `yaml:"radius_m" mapstructure:"radius_m"`
	Categories map[string][]string `yaml:"categories" mapstructure:"categories"`
}

// RoutesConfig configures the Google Routes drive-time source.
type RoutesConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	APIKey        string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	Mode          string `yaml:"mode" mapstructure:"mode"`
	LandmarksFile string `yaml:"landmarks_file" mapstructure:"landmarks_file"`
}

// ServerConfig configures the optional status endpoint.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LISTINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "listings.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.size", 5)
	v.SetDefault("batch.delay_seconds", 1)
	v.SetDefault("batch.source_timeout_secs", 30)
	// Secrets default empty so env overrides bind.
	v.SetDefault("census.api_key", "")
	v.SetDefault("transit.api_key", "")
	v.SetDefault("places.api_key", "")
	v.SetDefault("routes.api_key", "")
	v.SetDefault("beats.shapefile_path", "")
	v.SetDefault("routes.landmarks_file", "")
	v.SetDefault("census.enabled", true)
	v.SetDefault("census.geocoder_url", "https://geocoding.geo.census.gov/geocoder/geographies/coordinates")
	v.SetDefault("census.acs_base_url", "https://api.census.gov/data")
	v.SetDefault("census.year", 2023)
	v.SetDefault("transit.enabled", true)
	v.SetDefault("transit.base_url", "https://developer.mtd.org/api/v2.2/json")
	v.SetDefault("transit.max_stops", 200)
	v.SetDefault("beats.enabled", true)
	v.SetDefault("beats.layer_url", "https://gisportal.champaignil.gov/ms/rest/services/Open_Data/Open_Data/MapServer/25/query")
	v.SetDefault("places.enabled", true)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.radius_m", 1000)
	v.SetDefault("places.categories", map[string][]string{
		"restaurants":  {"restaurant"},
		"cafes":        {"cafe"},
		"schools":      {"school"},
		"parks":        {"park"},
		"gyms":         {"gym"},
		"supermarkets": {"supermarket"},
	})
	v.SetDefault("routes.enabled", true)
	v.SetDefault("routes.base_url", "https://routes.googleapis.com")
	v.SetDefault("routes.mode", "DRIVE")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that every enabled source has the credentials it needs.
// A missing key for an enabled source is a startup error, never a per-record
// failure. The Census key is optional (the API allows modest keyless usage).
func (c *Config) Validate() error {
	var missing []string

	if c.Transit.Enabled && c.Transit.APIKey == "" {
		missing = append(missing, "LISTINGS_TRANSIT_API_KEY (required: MTD bus stops)")
	}
	if c.Places.Enabled && c.Places.APIKey == "" {
		missing = append(missing, "LISTINGS_PLACES_API_KEY (required: Google Places)")
	}
	if c.Routes.Enabled && c.Routes.APIKey == "" {
		missing = append(missing, "LISTINGS_ROUTES_API_KEY (required: Google Routes)")
	}
	if c.Beats.Enabled && c.Beats.LayerURL == "" && c.Beats.ShapefilePath == "" {
		missing = append(missing, "LISTINGS_BEATS_LAYER_URL or LISTINGS_BEATS_SHAPEFILE_PATH (required: police beats)")
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing credentials for enabled sources:\n  %s\n\nSet these env vars or disable the source with its --skip flag", strings.Join(missing, "\n  "))
	}

	if c.Batch.Size < 1 {
		return eris.Errorf("config: batch.size must be >= 1, got %d", c.Batch.Size)
	}
	if c.Batch.DelaySeconds < 0 {
		return eris.Errorf("config: batch.delay_seconds must be >= 0, got %d", c.Batch.DelaySeconds)
	}

	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

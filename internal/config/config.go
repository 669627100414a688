package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FeedConfig describes an ICS calendar whose all-day events are treated as
// public holidays for one country.
type FeedConfig struct {
	// ID is an internal identifier used for caching and logging.
	ID string `yaml:"id" json:"id"`
	// Country is the ISO 3166-1 alpha-2 code the feed applies to.
	Country string `yaml:"country" json:"country"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
}

// HolidayConfig controls the holiday data sources.
type HolidayConfig struct {
	// APIBaseURL is a Nager.Date compatible endpoint, e.g.
	// "https://date.nager.at/api/v3". Empty disables the API source.
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url"`

	// CacheDir holds per-(country, year) API responses and ICS feed bodies.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// CacheMaxAgeHours is how long a cached response is served without
	// revalidating upstream.
	CacheMaxAgeHours int `yaml:"cache_max_age_hours" json:"cache_max_age_hours"`

	// TimeoutSeconds bounds a single upstream request.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// Countries are prefetched on the refresh schedule.
	Countries []string `yaml:"countries" json:"countries"`

	// Feeds are additional ICS holiday calendars.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`
}

// OverlapConfig holds defaults for meeting-overlap requests that omit them.
type OverlapConfig struct {
	StepMinutes    int `yaml:"step_minutes" json:"step_minutes"`
	MeetingMinutes int `yaml:"meeting_minutes" json:"meeting_minutes"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used as primary zone when a request does
	// not name one (e.g. "America/New_York").
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// LogFormat is text or json.
	LogFormat string `yaml:"log_format" json:"log_format"`

	// RefreshCron is a cron-style schedule (e.g. "0 3 * * *") for holiday
	// prefetch.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// StorePath is the SQLite file backing the state store.
	StorePath string `yaml:"store_path" json:"store_path"`

	Holidays HolidayConfig `yaml:"holidays" json:"holidays"`

	Overlap OverlapConfig `yaml:"overlap" json:"overlap"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "UTC"
	defaultRefreshCron = "0 3 * * *"
	defaultAPIBaseURL  = "https://date.nager.at/api/v3"
	defaultCacheDir    = "./var/holiday-cache"
	defaultStorePath   = "./var/plancal.db"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		LogLevel:    "info",
		LogFormat:   "text",
		RefreshCron: defaultRefreshCron,
		StorePath:   defaultStorePath,
		Holidays: HolidayConfig{
			APIBaseURL:       defaultAPIBaseURL,
			CacheDir:         defaultCacheDir,
			CacheMaxAgeHours: 7 * 24,
			TimeoutSeconds:   15,
			Countries:        []string{},
			Feeds:            []FeedConfig{},
		},
		Overlap: OverlapConfig{
			StepMinutes:    30,
			MeetingMinutes: 60,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		c.LogFormat = "text"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.StorePath == "" {
		c.StorePath = defaultStorePath
	}

	h := &c.Holidays
	if h.CacheDir == "" {
		h.CacheDir = defaultCacheDir
	}
	if h.CacheMaxAgeHours <= 0 {
		h.CacheMaxAgeHours = 7 * 24
	}
	if h.TimeoutSeconds <= 0 {
		h.TimeoutSeconds = 15
	}
	if h.Countries == nil {
		h.Countries = []string{}
	}
	for i, cc := range h.Countries {
		h.Countries[i] = strings.ToUpper(strings.TrimSpace(cc))
	}
	if h.Feeds == nil {
		h.Feeds = []FeedConfig{}
	}
	for i := range h.Feeds {
		f := &h.Feeds[i]
		f.Country = strings.ToUpper(strings.TrimSpace(f.Country))
		if f.ID == "" {
			f.ID = f.Country + "-" + strconv.Itoa(i)
		}
	}

	if c.Overlap.StepMinutes <= 0 {
		c.Overlap.StepMinutes = 30
	}
	if c.Overlap.MeetingMinutes <= 0 {
		c.Overlap.MeetingMinutes = 60
	}
}

// CacheMaxAge returns the holiday cache freshness window.
func (h HolidayConfig) CacheMaxAge() time.Duration {
	return time.Duration(h.CacheMaxAgeHours) * time.Hour
}

// Timeout returns the per-request upstream timeout.
func (h HolidayConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// ApplyEnv overrides selected fields from the environment. A .env file in
// the working directory is read first if present.
//
//	PLANCAL_LISTEN, PLANCAL_TIMEZONE, PLANCAL_LOG_LEVEL, PLANCAL_LOG_FORMAT,
//	PLANCAL_STORE_PATH, PLANCAL_HOLIDAY_API_URL, PLANCAL_HOLIDAY_CACHE_DIR,
//	PLANCAL_HOLIDAY_COUNTRIES (comma separated)
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	setString(&c.Listen, "PLANCAL_LISTEN")
	setString(&c.Timezone, "PLANCAL_TIMEZONE")
	setString(&c.LogLevel, "PLANCAL_LOG_LEVEL")
	setString(&c.LogFormat, "PLANCAL_LOG_FORMAT")
	setString(&c.StorePath, "PLANCAL_STORE_PATH")
	setString(&c.Holidays.APIBaseURL, "PLANCAL_HOLIDAY_API_URL")
	setString(&c.Holidays.CacheDir, "PLANCAL_HOLIDAY_CACHE_DIR")

	if v, ok := os.LookupEnv("PLANCAL_HOLIDAY_COUNTRIES"); ok {
		c.Holidays.Countries = []string{}
		for _, cc := range strings.Split(v, ",") {
			if cc = strings.TrimSpace(cc); cc != "" {
				c.Holidays.Countries = append(c.Holidays.Countries, cc)
			}
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - In both cases environment overrides are applied, then defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			saveErr := Save(path, cfg)
			cfg.ApplyEnv()
			cfg.Normalize()
			// Even if save fails, return cfg with error so caller can decide.
			return cfg, saveErr
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".plancal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

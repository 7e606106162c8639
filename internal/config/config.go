package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadMinimal.
const (
	EnvDataDir      = "INTERVIEWLENS_DATA_DIR"
	EnvBackendURL   = "INTERVIEWLENS_BACKEND_URL"
	EnvLegacyAPIURL = "VITE_API_URL"
	EnvTimezone     = "INTERVIEWLENS_TIMEZONE"
	EnvImportDir    = "INTERVIEWLENS_IMPORT_DIR"
	EnvFetchWorkers = "INTERVIEWLENS_FETCH_WORKERS"
)

// DotEnvFile is the dotenv file read from the working directory.
// Variables already set in the process environment win.
var DotEnvFile = ".env"

// Config holds all application configuration.
type Config struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	DataDir string `json:"data_dir"`
	DBPath  string `json:"-"`

	// BackendURL is the session API. When empty, sessions are
	// served from the local store.
	BackendURL   string        `json:"backend_url,omitempty"`
	FetchWorkers int           `json:"fetch_workers"`
	FetchTimeout time.Duration `json:"-"`
	WriteTimeout time.Duration `json:"-"`

	// Timezone is the IANA zone dates are displayed in.
	Timezone string `json:"timezone"`
	// ImportDir, when set, is imported at startup and watched.
	ImportDir string `json:"import_dir,omitempty"`
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	dataDir := filepath.Join(home, ".interviewlens")
	return Config{
		Host:         "127.0.0.1",
		Port:         8090,
		DataDir:      dataDir,
		DBPath:       filepath.Join(dataDir, "sessions.db"),
		FetchTimeout: 30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Timezone:     "UTC",
	}, nil
}

// Load builds a Config by layering:
// defaults < .env < config file < env < flags.
// The provided FlagSet must already be parsed by the caller.
// Only flags that were explicitly set override the lower layers.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	if err := applyFlags(&cfg, fs); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, the dotenv file,
// the config file and the environment, without parsing CLI
// flags. Use this for subcommands that manage their own flag
// sets.
func LoadMinimal() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	env, err := readEnv(DotEnvFile)
	if err != nil {
		return cfg, fmt.Errorf("loading %s: %w", DotEnvFile, err)
	}

	// The data dir locates the config file, so it is resolved
	// from the environment first.
	if v := env(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	if err := cfg.loadEnv(env); err != nil {
		return cfg, err
	}
	cfg.DBPath = filepath.Join(cfg.DataDir, "sessions.db")
	return cfg, cfg.validate()
}

// readEnv returns a lookup over the process environment that
// falls back to the dotenv file at path. A missing file is not
// an error.
func readEnv(path string) (func(string) string, error) {
	dotenv := map[string]string{}
	if path != "" {
		m, err := godotenv.Read(path)
		switch {
		case err == nil:
			dotenv = m
		case !os.IsNotExist(err):
			return nil, err
		}
	}
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file struct {
		Host         string `json:"host"`
		Port         int    `json:"port"`
		BackendURL   string `json:"backend_url"`
		FetchWorkers int    `json:"fetch_workers"`
		FetchTimeout string `json:"fetch_timeout"`
		WriteTimeout string `json:"write_timeout"`
		Timezone     string `json:"timezone"`
		ImportDir    string `json:"import_dir"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.Host != "" {
		c.Host = file.Host
	}
	if file.Port != 0 {
		c.Port = file.Port
	}
	if file.BackendURL != "" {
		c.BackendURL = file.BackendURL
	}
	if file.FetchWorkers != 0 {
		c.FetchWorkers = file.FetchWorkers
	}
	if file.Timezone != "" {
		c.Timezone = file.Timezone
	}
	if file.ImportDir != "" {
		c.ImportDir = file.ImportDir
	}
	if err := parseDuration(
		"fetch_timeout", file.FetchTimeout, &c.FetchTimeout,
	); err != nil {
		return err
	}
	return parseDuration(
		"write_timeout", file.WriteTimeout, &c.WriteTimeout,
	)
}

func parseDuration(name, s string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	*dst = d
	return nil
}

func (c *Config) loadEnv(env func(string) string) error {
	if v := env(EnvBackendURL); v != "" {
		c.BackendURL = v
	} else if v := env(EnvLegacyAPIURL); v != "" {
		c.BackendURL = v
	}
	if v := env(EnvTimezone); v != "" {
		c.Timezone = v
	}
	if v := env(EnvImportDir); v != "" {
		c.ImportDir = v
	}
	if v := env(EnvFetchWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvFetchWorkers, v, err)
		}
		c.FetchWorkers = n
	}
	return nil
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.FetchWorkers < 0 {
		return fmt.Errorf("fetch workers must not be negative")
	}
	return nil
}

// UseBackend reports whether sessions come from the remote API
// rather than the local store.
func (c *Config) UseBackend() bool {
	return c.BackendURL != ""
}

// RegisterServeFlags registers serve-command flags on fs.
// The caller must call fs.Parse before passing fs to Load.
func RegisterServeFlags(fs *flag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 8090, "Port to listen on")
	fs.String("backend", "",
		"Session API base URL (empty serves the local store)")
	fs.String("timezone", "UTC", "IANA timezone for displayed dates")
	fs.String("import-dir", "",
		"Directory of export files to import and watch")
	fs.Int("workers", 0, "Concurrent session fetches (0 = auto)")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) error {
	if fs == nil {
		return nil
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = f.Value.String()
		case "port":
			// flag already validated the int; ignore parse error
			cfg.Port, _ = strconv.Atoi(f.Value.String())
		case "backend":
			cfg.BackendURL = f.Value.String()
		case "timezone":
			cfg.Timezone = f.Value.String()
		case "import-dir":
			cfg.ImportDir = f.Value.String()
		case "workers":
			cfg.FetchWorkers, _ = strconv.Atoi(f.Value.String())
		}
	})
	return cfg.validate()
}

// ResolveDataDir returns the effective data directory by applying
// defaults and environment overrides, without reading the config
// file.
func ResolveDataDir() (string, error) {
	cfg, err := Default()
	if err != nil {
		return "", err
	}
	env, err := readEnv(DotEnvFile)
	if err != nil {
		return "", err
	}
	if v := env(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	return cfg.DataDir, nil
}

// Save writes the file-backed settings to config.json, keeping
// any keys it does not know about.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	existing := make(map[string]any)
	data, err := os.ReadFile(c.configPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf(
				"existing config is invalid, cannot update: %w",
				err,
			)
		}
	}

	existing["host"] = c.Host
	existing["port"] = c.Port
	existing["backend_url"] = c.BackendURL
	existing["fetch_workers"] = c.FetchWorkers
	existing["fetch_timeout"] = c.FetchTimeout.String()
	existing["write_timeout"] = c.WriteTimeout.String()
	existing["timezone"] = c.Timezone
	existing["import_dir"] = c.ImportDir
	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(c.configPath(), out, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

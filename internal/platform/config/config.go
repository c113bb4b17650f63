package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Engine names accepted in Engines.Order.
const (
	EngineTesseractMRZ = "tesseract-mrz"
	EngineTesseract    = "tesseract"
	EngineRemote       = "remote"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Config is the full service configuration.
type Config struct {
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
	Scan    Scan    `yaml:"scan"`
	Engines Engines `yaml:"engines"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string   `yaml:"addr"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	CORSOrigins    []string `yaml:"cors_origins"`
	// JWTSigningKey enables bearer-token auth on the extraction endpoint
	// when set.
	JWTSigningKey   string        `yaml:"jwt_signing_key"`
	JWTIssuer       string        `yaml:"jwt_issuer"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Log selects level and output format.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Scan tunes the pipeline.
type Scan struct {
	TempDir        string  `yaml:"temp_dir"`
	DebugDir       string  `yaml:"debug_dir"`
	MaxConcurrent  int     `yaml:"max_concurrent"`
	BottomFraction float64 `yaml:"bottom_fraction"`
}

// Engines lists the recognition engines in call order and their settings.
type Engines struct {
	Order              []string      `yaml:"order"`
	TesseractLanguages []string      `yaml:"tesseract_languages"`
	TessdataPrefix     string        `yaml:"tessdata_prefix"`
	Timeout            time.Duration `yaml:"timeout"`
	// BreakerThreshold opens an engine's circuit after that many consecutive
	// timeouts or unavailable responses. Zero disables breakers.
	BreakerThreshold   int           `yaml:"breaker_threshold"`
	Remote             Remote        `yaml:"remote"`
}

// Remote configures an HTTP OCR sidecar.
type Remote struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Kind    string        `yaml:"kind"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":5001",
			MaxUploadBytes:  15 << 20,
			JWTIssuer:       "mrzgate",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: Log{Level: "info", Format: "text"},
		Scan: Scan{
			MaxConcurrent:  runtime.GOMAXPROCS(0),
			BottomFraction: 0.45,
		},
		Engines: Engines{
			Order:              []string{EngineTesseractMRZ, EngineTesseract},
			TesseractLanguages: []string{"eng"},
			Remote: Remote{
				Name:    "paddle",
				Kind:    "general",
				Timeout: 30 * time.Second,
			},
		},
	}
}

// FromEnv builds a Config from defaults and environment variables so main
// stays lean.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-provided path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, ErrConfigNotFound
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	list := func(dst *[]string, key string) {
		if v := getenv(key); v != "" {
			*dst = splitList(v)
		}
	}

	str(&c.Server.Addr, "MRZGATE_ADDR")
	if port := getenv("PORT"); port != "" && getenv("MRZGATE_ADDR") == "" {
		c.Server.Addr = ":" + port
	}
	list(&c.Server.CORSOrigins, "MRZGATE_CORS_ORIGINS")
	str(&c.Server.JWTSigningKey, "JWT_SIGNING_KEY")
	str(&c.Log.Level, "MRZGATE_LOG_LEVEL")
	str(&c.Log.Format, "MRZGATE_LOG_FORMAT")
	str(&c.Scan.TempDir, "MRZGATE_TEMP_DIR")
	str(&c.Scan.DebugDir, "MRZGATE_DEBUG_DIR")
	list(&c.Engines.Order, "MRZGATE_ENGINES")
	list(&c.Engines.TesseractLanguages, "MRZGATE_TESSERACT_LANGS")
	str(&c.Engines.TessdataPrefix, "TESSDATA_PREFIX")
	str(&c.Engines.Remote.URL, "MRZGATE_REMOTE_URL")
	str(&c.Engines.Remote.APIKey, "MRZGATE_REMOTE_API_KEY")

	var errs []error
	parse := func(key string, fn func(string) error) {
		if v := getenv(key); v != "" {
			if err := fn(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}
	parse("MRZGATE_MAX_UPLOAD_BYTES", func(v string) (err error) {
		c.Server.MaxUploadBytes, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	parse("MRZGATE_MAX_CONCURRENT", func(v string) (err error) {
		c.Scan.MaxConcurrent, err = strconv.Atoi(v)
		return err
	})
	parse("MRZGATE_BOTTOM_FRACTION", func(v string) (err error) {
		c.Scan.BottomFraction, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("MRZGATE_ENGINE_TIMEOUT", func(v string) (err error) {
		c.Engines.Timeout, err = time.ParseDuration(v)
		return err
	})
	parse("MRZGATE_BREAKER_THRESHOLD", func(v string) (err error) {
		c.Engines.BreakerThreshold, err = strconv.Atoi(v)
		return err
	})
	parse("MRZGATE_REMOTE_TIMEOUT", func(v string) (err error) {
		c.Engines.Remote.Timeout, err = time.ParseDuration(v)
		return err
	})
	return errors.Join(errs...)
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	if f := c.Scan.BottomFraction; f <= 0 || f > 1 {
		errs = append(errs, fmt.Errorf("scan.bottom_fraction must be in (0, 1], got %g", f))
	}
	if c.Scan.MaxConcurrent < 0 {
		errs = append(errs, errors.New("scan.max_concurrent must not be negative"))
	}
	if c.Engines.Timeout < 0 {
		errs = append(errs, errors.New("engines.timeout must not be negative"))
	}
	if c.Engines.BreakerThreshold < 0 {
		errs = append(errs, errors.New("engines.breaker_threshold must not be negative"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	seen := make(map[string]bool, len(c.Engines.Order))
	for _, name := range c.Engines.Order {
		switch name {
		case EngineTesseractMRZ, EngineTesseract:
		case EngineRemote:
			if c.Engines.Remote.URL == "" {
				errs = append(errs, errors.New("engines.remote.url is required when the remote engine is enabled"))
			}
			switch c.Engines.Remote.Kind {
			case "document", "general":
			default:
				errs = append(errs, fmt.Errorf("engines.remote.kind must be document or general, got %q", c.Engines.Remote.Kind))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown engine %q", name))
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("engine %q listed twice", name))
		}
		seen[name] = true
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package configs

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

const (
	EngineOSRM   = "osrm"
	EngineGoogle = "google"

	// EnvPrefix prefixes every envconfig variable, e.g. ROUTING_ENGINE_NAME.
	EnvPrefix = "ROUTING"
)

type Engine struct {
	Name    string `yaml:"name" split_words:"true"`
	BaseURL string `yaml:"baseUrl" split_words:"true"`
	Profile string `yaml:"profile" split_words:"true"`
	// APIKey is only read by the google engine.
	APIKey string `yaml:"apiKey" ignored:"true" env:"GOOGLE_MAPS_API_KEY"`
}

type Limits struct {
	MinInterval    time.Duration `yaml:"minInterval" split_words:"true"`
	RequestTimeout time.Duration `yaml:"requestTimeout" split_words:"true"`
	MaxAttempts    int           `yaml:"maxAttempts" split_words:"true"`
}

type Cache struct {
	Capacity      int           `yaml:"capacity"`
	TTL           time.Duration `yaml:"ttl"`
	FlushInterval time.Duration `yaml:"flushInterval" split_words:"true"`
}

type Fallback struct {
	Steps           int     `yaml:"steps"`
	AverageSpeedKmh float64 `yaml:"averageSpeedKmh" split_words:"true"`
}

type Server struct {
	Port int `yaml:"port" env:"SERVER_PORT"`
}

type Config struct {
	Engine      Engine   `yaml:"engine"`
	Limits      Limits   `yaml:"limits"`
	Cache       Cache    `yaml:"cache"`
	Fallback    Fallback `yaml:"fallback"`
	Server      Server   `yaml:"server" ignored:"true"`
	NsqdAddress string   `yaml:"nsqdAddress" ignored:"true" env:"NSQD_ADDRESS"`
	LogLevel    string   `yaml:"logLevel" split_words:"true"`
}

func DefaultConfig() *Config {
	return &Config{
		Engine: Engine{
			Name:    EngineOSRM,
			BaseURL: "https://router.project-osrm.org",
			Profile: "driving",
		},
		Limits: Limits{
			MinInterval:    1100 * time.Millisecond,
			RequestTimeout: 10 * time.Second,
			MaxAttempts:    1,
		},
		Cache: Cache{
			Capacity: 100,
		},
		Fallback: Fallback{
			Steps:           20,
			AverageSpeedKmh: 40,
		},
		Server:   Server{Port: 3030},
		LogLevel: "info",
	}
}

// Read overlays the YAML file on c. Keys missing from the file keep their
// current value.
func (c *Config) Read(configFile string) error {
	f, err := os.Open(configFile)
	if err != nil {
		return errors.Wrap(err, "open config")
	}
	defer f.Close()

	if err = yaml.NewDecoder(f).Decode(c); err != nil {
		return errors.Wrapf(err, "decode config %s", configFile)
	}
	return nil
}

// ReadEnv loads the optional .env files, then applies ROUTING_* variables and
// the plain env tags. Unset variables leave c untouched.
func (c *Config) ReadEnv(dotenv ...string) error {
	for _, file := range dotenv {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return errors.Wrapf(err, "load %s", file)
		}
	}
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return errors.Wrap(err, "envconfig")
	}
	if err := envdecode.Decode(c); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return errors.Wrap(err, "envdecode")
	}
	return nil
}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var err error
	switch c.Engine.Name {
	case EngineOSRM:
		if u, perr := url.Parse(c.Engine.BaseURL); perr != nil || !u.IsAbs() {
			err = multierr.Append(err, fmt.Errorf("engine.baseUrl %q must be an absolute URL", c.Engine.BaseURL))
		}
		if c.Engine.Profile == "" {
			err = multierr.Append(err, errors.New("engine.profile is required"))
		}
	case EngineGoogle:
		if c.Engine.APIKey == "" {
			err = multierr.Append(err, errors.New("engine.apiKey is required for the google engine"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("engine.name %q is not one of %s, %s", c.Engine.Name, EngineOSRM, EngineGoogle))
	}
	if c.Limits.MinInterval < 0 {
		err = multierr.Append(err, errors.New("limits.minInterval must not be negative"))
	}
	if c.Limits.RequestTimeout < 0 {
		err = multierr.Append(err, errors.New("limits.requestTimeout must not be negative"))
	}
	if c.Limits.MaxAttempts < 1 {
		err = multierr.Append(err, errors.New("limits.maxAttempts must be at least 1"))
	}
	if c.Cache.Capacity < 1 {
		err = multierr.Append(err, errors.New("cache.capacity must be at least 1"))
	}
	if c.Cache.TTL < 0 || c.Cache.FlushInterval < 0 {
		err = multierr.Append(err, errors.New("cache durations must not be negative"))
	}
	if c.Fallback.Steps < 1 {
		err = multierr.Append(err, errors.New("fallback.steps must be at least 1"))
	}
	if c.Fallback.AverageSpeedKmh <= 0 {
		err = multierr.Append(err, errors.New("fallback.averageSpeedKmh must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	return err
}

func (c *Config) String() string {
	apiKey := ""
	if c.Engine.APIKey != "" {
		apiKey = "***"
	}
	return fmt.Sprintf("Engine:%s, BaseURL:%s, Profile:%s, APIKey:%s, MinInterval:%v, RequestTimeout:%v, CacheCapacity:%d, CacheTTL:%v, Port:%d, NSQD_ADDRESS:%s",
		c.Engine.Name, c.Engine.BaseURL, c.Engine.Profile, apiKey, c.Limits.MinInterval, c.Limits.RequestTimeout,
		c.Cache.Capacity, c.Cache.TTL, c.Server.Port, c.NsqdAddress)
}

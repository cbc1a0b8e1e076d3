package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"datasetprep/internal/logging"
	"datasetprep/internal/pipeline"
)

// EnvPrefix prefixes every environment variable, e.g. DATASETPREP_TARGET_WIDTH.
const EnvPrefix = "DATASETPREP"

type Config struct {
	InputDir  string `mapstructure:"input_dir"`
	OutputDir string `mapstructure:"output_dir"`

	TargetWidth     int    `mapstructure:"target_width" default:"300" validate:"gt=0,lte=16000"`
	TargetHeight    int    `mapstructure:"target_height" default:"300" validate:"gt=0,lte=16000"`
	Interpolation   string `mapstructure:"interpolation" default:"bilinear" validate:"oneof=nearest bilinear bicubic lanczos"`
	Pad             bool   `mapstructure:"pad" default:"true"`
	BackgroundColor string `mapstructure:"background_color" default:"0,0,0"`

	OutputFormat string `mapstructure:"output_format" default:"jpeg" validate:"oneof=jpeg jpg png webp avif"`
	Quality      int    `mapstructure:"quality" default:"90" validate:"gte=1,lte=100"`
	AutoOrient   bool   `mapstructure:"auto_orient" default:"true"`
	MaxBytes     int64  `mapstructure:"max_bytes" default:"52428800" validate:"gt=0"`

	// Workers bounds concurrent files, ComposeWorkers the row bands per
	// canvas. Zero means GOMAXPROCS.
	Workers        int `mapstructure:"workers" validate:"gte=0"`
	ComposeWorkers int `mapstructure:"compose_workers" validate:"gte=0"`

	ManifestPath string `mapstructure:"manifest_path"`
	Resume       bool   `mapstructure:"resume"`

	ServerAddr string `mapstructure:"server_addr" default:":8080"`
	// RateLimitPerMin caps requests per client on the pipeline routes; zero
	// disables it.
	RateLimitPerMin int    `mapstructure:"rate_limit_per_min" default:"120" validate:"gte=0"`
	TrustedProxies  string `mapstructure:"trusted_proxies"`

	Log logging.Config `mapstructure:"log"`
}

// keys lists every setting so env vars resolve even without a config file.
var keys = []string{
	"input_dir", "output_dir",
	"target_width", "target_height", "interpolation", "pad", "background_color",
	"output_format", "quality", "auto_orient", "max_bytes",
	"workers", "compose_workers",
	"manifest_path", "resume",
	"server_addr", "rate_limit_per_min", "trusted_proxies",
	"log.level", "log.format", "log.file", "log.max_size_mb", "log.max_backups",
}

// Default returns a Config with every default applied.
func Default() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// NewViper returns a viper instance wired for DATASETPREP_* env vars.
// configFile is optional; yaml, toml and json are recognized by extension.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load overlays v (file, env, flags) on the defaults and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and the values that need parsing.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := pipeline.ParseRGB(c.BackgroundColor); err != nil {
		return fmt.Errorf("invalid config: background_color: %w", err)
	}
	return nil
}

// ValidateRun checks the settings only a dataset run needs.
func (c *Config) ValidateRun() error {
	var errs []error
	if c.InputDir == "" {
		errs = append(errs, errors.New("input_dir is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if c.Resume && c.ManifestPath == "" {
		errs = append(errs, errors.New("resume requires manifest_path"))
	}
	return errors.Join(errs...)
}

// ResizeSpec converts the letterbox settings.
func (c *Config) ResizeSpec() (pipeline.ResizeSpec, error) {
	interp, err := pipeline.ParseInterpolation(c.Interpolation)
	if err != nil {
		return pipeline.ResizeSpec{}, err
	}
	bg, err := pipeline.ParseRGB(c.BackgroundColor)
	if err != nil {
		return pipeline.ResizeSpec{}, err
	}
	return pipeline.ResizeSpec{
		TargetWidth:   c.TargetWidth,
		TargetHeight:  c.TargetHeight,
		Interpolation: interp,
		Pad:           c.Pad,
		Background:    bg,
	}, nil
}

// Processor builds the per-image pipeline from the config.
func (c *Config) Processor() (*pipeline.Processor, error) {
	spec, err := c.ResizeSpec()
	if err != nil {
		return nil, err
	}
	format, err := pipeline.ParseFormat(c.OutputFormat)
	if err != nil {
		return nil, err
	}
	return &pipeline.Processor{
		Spec:       spec,
		Format:     format,
		Quality:    c.Quality,
		AutoOrient: c.AutoOrient,
		MaxBytes:   c.MaxBytes,
		Compositor: pipeline.Compositor{Workers: c.ComposeWorkers},
	}, nil
}

// FileWorkers resolves the file-level concurrency.
func (c *Config) FileWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Package config resolves a run configuration from built-in defaults, an
// optional JSON file, JIDPREP_* environment variables, and command-line
// overrides, in that order of precedence.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/lattice-substrate/jid-conformance/jiderr"
	"github.com/lattice-substrate/jid-conformance/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "JIDPREP_"

// Config is a resolved run configuration.
type Config struct {
	Preppers []string      `koanf:"preppers" json:"preppers" validate:"dive,required"`
	Corpus   []string      `koanf:"corpus" json:"corpus" validate:"dive,required"`
	Workers  int           `koanf:"workers" json:"workers" validate:"min=1,max=256"`
	Timeout  time.Duration `koanf:"timeout" json:"timeout" validate:"gte=0"`
	Report   string        `koanf:"report" json:"report"`
	Metrics  string        `koanf:"metrics" json:"metrics"`
	Log      Log           `koanf:"log" json:"log"`
}

// Log configures the command-line logger.
type Log struct {
	Level  string `koanf:"level" json:"level" validate:"loglevel"`
	Format string `koanf:"format" json:"format" validate:"oneof=console json"`
}

// Default returns the built-in configuration: every registered prepper, the
// embedded corpus, serial evaluation and a five second invocation timeout.
func Default() *Config {
	return &Config{
		Workers: 1,
		Timeout: 5 * time.Second,
		Log: Log{
			Level:  "warn",
			Format: "console",
		},
	}
}

// envKeys maps environment names, without the prefix, to config paths.
var envKeys = map[string]string{
	"PREPPERS":   "preppers",
	"CORPUS":     "corpus",
	"WORKERS":    "workers",
	"TIMEOUT":    "timeout",
	"REPORT":     "report",
	"METRICS":    "metrics",
	"LOG_LEVEL":  "log.level",
	"LOG_FORMAT": "log.format",
}

// Options selects the optional layers.
type Options struct {
	// File is a JSON config file; empty skips the file layer.
	File string
	// Overrides are dotted config paths set explicitly on the command line,
	// e.g. "log.level".
	Overrides map[string]any
}

// Load resolves and validates a configuration. All failures are
// CONFIG_INVALID.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, jiderr.Wrap(jiderr.ConfigInvalid, "load defaults", err)
	}
	if opts.File != "" {
		values, err := readFile(opts.File)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawMap(values), nil); err != nil {
			return nil, jiderr.Wrap(jiderr.ConfigInvalid, "load config file", err)
		}
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return nil, jiderr.Wrap(jiderr.ConfigInvalid, "load environment", err)
	}
	for key, value := range opts.Overrides {
		if err := k.Set(key, value); err != nil {
			return nil, jiderr.Wrap(jiderr.ConfigInvalid, "override "+key, err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			ErrorUnused:      true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, jiderr.Wrap(jiderr.ConfigInvalid, "decode configuration", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		return logger.ValidLevel(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks field constraints.
func Validate(cfg *Config) error {
	if cfg == nil {
		return jiderr.New(jiderr.ConfigInvalid, "config is nil")
	}
	if err := validate.Struct(cfg); err != nil {
		return jiderr.Wrap(jiderr.ConfigInvalid, "invalid configuration", err)
	}
	return nil
}

func transformEnv(key, value string) (string, any) {
	path, ok := envKeys[strings.TrimPrefix(key, EnvPrefix)]
	if !ok || strings.TrimSpace(value) == "" {
		return "", nil
	}
	switch path {
	case "preppers", "corpus":
		return path, splitList(value)
	default:
		return path, strings.TrimSpace(value)
	}
}

// splitList splits a comma-separated list, dropping blank elements.
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fileConfig mirrors Config for strict JSON decoding. Pointers distinguish
// absent keys from zero values so that only present keys are layered.
type fileConfig struct {
	Preppers []string `json:"preppers"`
	Corpus   []string `json:"corpus"`
	Workers  *int     `json:"workers"`
	Timeout  *string  `json:"timeout"`
	Report   *string  `json:"report"`
	Metrics  *string  `json:"metrics"`
	Log      *struct {
		Level  *string `json:"level"`
		Format *string `json:"format"`
	} `json:"log"`
}

//nolint:gosec // config path is explicit operator input.
func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, jiderr.Wrap(jiderr.ConfigInvalid, "read config", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var fc fileConfig
	if err := dec.Decode(&fc); err != nil {
		return nil, jiderr.Wrap(jiderr.ConfigInvalid, "decode config json", err)
	}
	if err := ensureSingleJSONDocument(dec); err != nil {
		return nil, jiderr.Wrap(jiderr.ConfigInvalid, "decode config json", err)
	}

	values := make(map[string]any)
	if fc.Preppers != nil {
		values["preppers"] = fc.Preppers
	}
	if fc.Corpus != nil {
		values["corpus"] = fc.Corpus
	}
	setIf(values, "workers", fc.Workers)
	setIf(values, "timeout", fc.Timeout)
	setIf(values, "report", fc.Report)
	setIf(values, "metrics", fc.Metrics)
	if fc.Log != nil {
		log := make(map[string]any)
		setIf(log, "level", fc.Log.Level)
		setIf(log, "format", fc.Log.Format)
		if len(log) > 0 {
			values["log"] = log
		}
	}
	return values, nil
}

func setIf[T any](m map[string]any, key string, v *T) {
	if v != nil {
		m[key] = *v
	}
}

func ensureSingleJSONDocument(dec *json.Decoder) error {
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("unexpected trailing json content")
		}
		return fmt.Errorf("decode trailing json token: %w", err)
	}
	return nil
}

// rawMap adapts an in-memory map to koanf's Provider interface.
type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) {
	return r, nil
}

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ReadBytes not implemented")
}

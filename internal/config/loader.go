package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/professor93/tgconfig/pkg/constants"
)

const keyDelim = "."

// Loader assembles a Set from defaults, an optional JSON file, optional
// local overrides and the environment, in that order of precedence.
type Loader struct {
	filePath     string
	fileOptional bool
	envPrefix    string
	overrides    koanf.Provider
	logger       *zap.Logger
}

// Option configures a Loader
type Option func(*Loader)

// WithFile loads the given JSON file; Load fails if it does not exist
func WithFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
		l.fileOptional = false
	}
}

// WithOptionalFile loads the given JSON file if it exists
func WithOptionalFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
		l.fileOptional = true
	}
}

// WithEnvPrefix changes the environment prefix (default "TG_").
// An empty prefix disables the environment layer.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithOverrides merges p above the file layer and below the environment
func WithOverrides(p koanf.Provider) Option {
	return func(l *Loader) {
		l.overrides = p
	}
}

// WithLogger sets the logger used to report the resolved sources
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		envPrefix: constants.EnvPrefix,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges all layers, validates the result and returns it by value
func (l *Loader) Load() (Set, error) {
	k := koanf.New(keyDelim)
	sources := []string{"defaults"}

	if err := k.Load(mapProvider(Default().toMap()), nil); err != nil {
		return Set{}, errors.Wrap(err, "load defaults")
	}

	if l.filePath != "" {
		_, statErr := os.Stat(l.filePath)
		switch {
		case statErr == nil:
			if err := k.Load(file.Provider(l.filePath), json.Parser()); err != nil {
				return Set{}, errors.Wrapf(err, "load config file %s", l.filePath)
			}
			sources = append(sources, "file:"+l.filePath)
		case os.IsNotExist(statErr) && l.fileOptional:
			l.logger.Debug("Config file not found, skipping", zap.String("path", l.filePath))
		default:
			return Set{}, errors.Wrapf(statErr, "stat config file %s", l.filePath)
		}
	}

	if l.overrides != nil {
		if err := k.Load(l.overrides, nil); err != nil {
			return Set{}, errors.Wrap(err, "load overrides")
		}
		sources = append(sources, "overrides")
	}

	if l.envPrefix != "" {
		if err := k.Load(env.Provider(l.envPrefix, keyDelim, envKeyMapper(l.envPrefix)), nil); err != nil {
			return Set{}, errors.Wrap(err, "load environment")
		}
		sources = append(sources, "env:"+l.envPrefix+"*")
	}

	var set Set
	if err := k.Unmarshal("", &set); err != nil {
		return Set{}, errors.Wrap(err, "decode config")
	}

	if err := set.Validate(); err != nil {
		return Set{}, err
	}

	ws, _ := set.KDS.WebSocketURL()
	l.logger.Info("Configuration loaded",
		zap.Strings("sources", sources),
		zap.String("kds_mode", string(set.KDS.Mode)),
		zap.String("kds_api_base", set.KDS.APIBase()),
		zap.String("kds_ws_url", ws),
	)

	return set, nil
}

// envKeyMapper turns TG_KDS_LOCAL_POS_IP into kds.local_pos_ip.
// Variables that do not name a known record key are dropped.
func envKeyMapper(prefix string) func(string) string {
	return func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, prefix))
		app, field, ok := strings.Cut(key, "_")
		if !ok {
			return ""
		}
		path := app + keyDelim + field
		if !IsKnownKey(path) {
			return ""
		}
		return path
	}
}

// mapProvider serves an in-memory nested map as a koanf layer
type mapProvider map[string]interface{}

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("mapProvider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

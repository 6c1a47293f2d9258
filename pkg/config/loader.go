package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	rioerrors "github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/logging"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// EnvPrefix is the prefix of configuration environment variables.
// Sections are separated by a double underscore: RIOSHIP_DEPLOY__DELETE_STALE.
const EnvPrefix = "RIOSHIP_"

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Sources lists the files layered over the built-in defaults. Missing files
// are skipped.
type Sources struct {
	UserFile    string
	ProjectFile string
	// Overrides come from command-line flags, keyed by dotted path
	// ("deploy.team").
	Overrides map[string]interface{}
}

// Load builds the effective configuration:
// defaults -> user file -> project file -> environment -> overrides.
func Load(src Sources) (*Config, error) {
	log := logging.GetLogger("config")
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, rioerrors.Wrap(err, rioerrors.ErrConfigParse, "failed to load defaults")
	}

	for _, path := range []string{src.UserFile, src.ProjectFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, rioerrors.Wrapf(err, rioerrors.ErrConfigLoad, "failed to stat %s", path)
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, rioerrors.Wrapf(err, rioerrors.ErrConfigParse, "failed to load config from %s", path)
		}
		log.Debug().Str("path", path).Msg("Loaded config file")
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, rioerrors.Wrap(err, rioerrors.ErrConfigLoad, "failed to load environment")
	}

	if len(src.Overrides) > 0 {
		if err := k.Load(confmap.Provider(src.Overrides, "."), nil); err != nil {
			return nil, rioerrors.Wrap(err, rioerrors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, rioerrors.Wrap(err, rioerrors.ErrConfigParse, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps RIOSHIP_DEPLOY__DELETE_STALE to deploy.delete_stale.
// Variables without a section separator are not configuration keys.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if !strings.Contains(key, "__") {
		return ""
	}
	return strings.ReplaceAll(key, "__", ".")
}

// Validate rejects values no stage can work with.
func (c *Config) Validate() error {
	if c.Deploy.Workers < 1 {
		return rioerrors.Newf(rioerrors.ErrInvalidInput, "deploy.workers must be at least 1, got %d", c.Deploy.Workers)
	}
	if c.Deploy.Timeout <= 0 {
		return rioerrors.Newf(rioerrors.ErrInvalidInput, "deploy.timeout must be positive, got %s", c.Deploy.Timeout)
	}
	if c.Deploy.Team < 0 {
		return rioerrors.Newf(rioerrors.ErrInvalidInput, "team number must be positive, got %d", c.Deploy.Team)
	}
	if c.Project.File == "" {
		return rioerrors.New(rioerrors.ErrInvalidInput, "project.file cannot be empty")
	}
	return nil
}

// Template returns the commented default configuration, used to seed a
// project's rioship.toml.
func Template() []byte {
	out := make([]byte, len(defaultConfig))
	copy(out, defaultConfig)
	return out
}

// Describe summarizes where each layer came from, for debug output.
func (s Sources) Describe() string {
	return fmt.Sprintf("user=%q project=%q overrides=%d", s.UserFile, s.ProjectFile, len(s.Overrides))
}

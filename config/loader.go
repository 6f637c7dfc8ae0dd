package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
)

// Locate returns the config document to read. An explicit path must exist.
// When path is empty or DefaultPath and no such file exists in the working
// directory, $XDG_CONFIG_HOME/deployer/config.yml is tried.
func Locate(path string) (string, error) {
	explicit := path != "" && path != DefaultPath
	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if explicit {
		return "", deperrors.NewConfigurationError("locate", err).WithPath(path)
	}

	found, err := xdg.SearchConfigFile("deployer/" + DefaultPath)
	if err != nil {
		return "", deperrors.NewConfigurationError("locate",
			fmt.Errorf("%w: no %s in working directory or XDG config dirs", deperrors.ErrInvalidConfig, DefaultPath))
	}
	return found, nil
}

// Load reads the config document at path and resolves the settings of stack.
func Load(path, stack string) (*Sync, error) {
	located, err := Locate(path)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(located)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, deperrors.NewConfigurationError("load", fmt.Errorf("%w: %w", deperrors.ErrInvalidConfig, err)).
			WithPath(located)
	}

	cfg, err := FromViper(v, stack)
	if err != nil {
		var e *deperrors.Error
		if errors.As(err, &e) && e.Path == "" {
			e.Path = located
		}
		return nil, err
	}
	return cfg, nil
}

// FromViper resolves the settings of stack from an already loaded document.
func FromViper(v *viper.Viper, stack string) (*Sync, error) {
	env := viper.New()
	env.SetEnvPrefix(EnvPrefix)
	env.AutomaticEnv()

	r := &resolver{doc: v, env: env, stack: stack}
	cfg := Default()
	cfg.Stack = stack

	cfg.Region = r.String(KeyRegion, cfg.Region)
	cfg.Base = r.String(KeySyncBase, cfg.Base)
	cfg.Bucket = r.String(KeySyncDestBucket, cfg.Bucket)
	cfg.Release = r.String(KeyRelease, cfg.Release)
	cfg.Concurrency = r.Int(KeySyncConcurrency, cfg.Concurrency)
	cfg.ValidationThreshold = int64(r.Int(KeyValidationThreshold, int(cfg.ValidationThreshold)))
	cfg.ChunkSize = r.Int(KeyChunkSize, cfg.ChunkSize)

	var err error
	if cfg.Dirs, err = r.List(KeySyncDirs, nil); err != nil {
		return nil, deperrors.NewConfigurationError("load", deperrors.ErrSyncDirsNotList)
	}
	if cfg.Exclude, err = r.List(KeySyncExclude, nil); err != nil {
		return nil, deperrors.NewConfigurationError("load", fmt.Errorf("%w: %s must be a list", deperrors.ErrInvalidConfig, KeySyncExclude))
	}
	if cfg.TemplateMarkers, err = r.List(KeyTemplateMarkers, cfg.TemplateMarkers); err != nil {
		return nil, deperrors.NewConfigurationError("load", fmt.Errorf("%w: %s must be a list", deperrors.ErrInvalidConfig, KeyTemplateMarkers))
	}
	if cfg.TemplateExtensions, err = r.List(KeyTemplateExtensions, cfg.TemplateExtensions); err != nil {
		return nil, deperrors.NewConfigurationError("load", fmt.Errorf("%w: %s must be a list", deperrors.ErrInvalidConfig, KeyTemplateExtensions))
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolver looks settings up in env, stack section and global section order.
type resolver struct {
	doc   *viper.Viper
	env   *viper.Viper
	stack string
}

var errNotList = errors.New("not a list")

// find returns the viper instance and key holding name.
func (r *resolver) find(name string) (*viper.Viper, string, bool) {
	if r.env.IsSet(name) {
		return r.env, name, true
	}
	if r.stack != "" {
		if key := r.stack + "." + name; r.doc.IsSet(key) {
			return r.doc, key, true
		}
	}
	if key := GlobalSection + "." + name; r.doc.IsSet(key) {
		return r.doc, key, true
	}
	return nil, "", false
}

func (r *resolver) String(name, def string) string {
	v, key, ok := r.find(name)
	if !ok {
		return def
	}
	return v.GetString(key)
}

func (r *resolver) Int(name string, def int) int {
	v, key, ok := r.find(name)
	if !ok {
		return def
	}
	return v.GetInt(key)
}

// List returns a list setting. Environment values are comma separated; in the
// document the value must be a YAML sequence.
func (r *resolver) List(name string, def []string) ([]string, error) {
	v, key, ok := r.find(name)
	if !ok {
		return def, nil
	}

	if v == r.env {
		var out []string
		for _, s := range strings.Split(v.GetString(key), ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	}

	switch raw := v.Get(key).(type) {
	case nil:
		return nil, nil
	case []interface{}:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	case []string:
		return raw, nil
	default:
		return nil, errNotList
	}
}

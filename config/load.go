package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "FREECAD_"

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// File is an optional config file. Its extension selects the format.
	File string

	// EnvFile is a dotenv file. A missing file is ignored.
	// Default: ".env"
	EnvFile string

	// LookupEnv reads the process environment. Default: os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Load builds a validated Config from defaults, opts.File, the dotenv
// file, and the environment.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := LoadFile(opts.File, &cfg); err != nil {
			return Config{}, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: reading %s: %v", ErrConfiguration, envFile, err)
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		for k, v := range dotenv {
			if strings.EqualFold(k, key) {
				return v, true
			}
		}
		return "", false
	}

	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile decodes path over cfg. Fields the file omits keep their values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), cfg)
	default:
		return fmt.Errorf("%w: unsupported config file type %q", ErrConfiguration, ext)
	}
	if err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrConfiguration, path, err)
	}
	return nil
}

func applyEnv(cfg *Config, env func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"MODE", &cfg.Mode},
		{"PATH", &cfg.FreecadPath},
		{"SOCKET_HOST", &cfg.SocketHost},
		{"LOG_LEVEL", &cfg.LogLevel},
		{"TRANSPORT", &cfg.Transport},
	}
	for _, s := range strs {
		if v, ok := env(EnvPrefix + s.key); ok {
			*s.dst = strings.TrimSpace(v)
		}
	}
	cfg.Mode = strings.ToLower(cfg.Mode)
	cfg.Transport = strings.ToLower(cfg.Transport)

	ints := []struct {
		key string
		dst *int
	}{
		{"SOCKET_PORT", &cfg.SocketPort},
		{"XMLRPC_PORT", &cfg.XMLRPCPort},
		{"TIMEOUT_MS", &cfg.TimeoutMs},
		{"MAX_OUTPUT_SIZE", &cfg.MaxOutputSize},
	}
	for _, i := range ints {
		v, ok := env(EnvPrefix + i.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not an integer", ErrConfiguration, EnvPrefix, i.key, v)
		}
		*i.dst = n
	}

	if v, ok := env(EnvPrefix + "AUTO_RECONNECT"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %sAUTO_RECONNECT=%q is not a boolean", ErrConfiguration, EnvPrefix, v)
		}
		cfg.AutoReconnect = b
	}
	return nil
}

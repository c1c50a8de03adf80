package config

import (
	"os"
	"path/filepath"

	"github.com/hostscout/hostscout/internal/errors"
	"github.com/spf13/viper"
)

// Load reads config from the specified path.
// An empty path returns the defaults; a missing file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'hostscout init' to create one, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Config file has invalid values",
			"Check field types in "+path)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Find locates the config file: the explicit path if given, otherwise
// hostscout.yaml in the current directory. Returns empty if none exists,
// which means defaults apply.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Specified config file not found: "+explicit,
				"Check the path is correct")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	local := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	return "", nil
}

// applyDefaults registers default values so a partial config file works.
func applyDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("listen", def.Listen)
	v.SetDefault("data_file", def.DataFile)
	v.SetDefault("ssh_timeout", def.SSHTimeout)
	v.SetDefault("host_delay", def.HostDelay)
	v.SetDefault("cycle_interval", def.CycleInterval)
	v.SetDefault("pump_interval", def.PumpInterval)
	v.SetDefault("terminal.cols", def.Terminal.Cols)
	v.SetDefault("terminal.rows", def.Terminal.Rows)
}

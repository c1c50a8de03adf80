package config

import (
	"fmt"

	"github.com/hostscout/hostscout/internal/errors"
)

// Validate checks the config for values the daemon cannot run with.
func Validate(cfg *Config) error {
	if cfg.Listen == "" {
		return errors.New(errors.ErrConfig,
			"listen address is empty",
			"Set 'listen' to an address like ':5000'")
	}
	if cfg.DataFile == "" {
		return errors.New(errors.ErrConfig,
			"data_file is empty",
			"Set 'data_file' to the hosts JSON path, e.g. data/hosts.json")
	}

	for _, d := range []struct {
		name  string
		value int64
	}{
		{"ssh_timeout", int64(cfg.SSHTimeout)},
		{"host_delay", int64(cfg.HostDelay)},
		{"cycle_interval", int64(cfg.CycleInterval)},
		{"pump_interval", int64(cfg.PumpInterval)},
	} {
		if d.value <= 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s must be a positive duration", d.name),
				"Use a Go duration string like '10s' or '500ms'")
		}
	}

	if cfg.Terminal.Cols <= 0 || cfg.Terminal.Rows <= 0 {
		return errors.New(errors.ErrConfig,
			"terminal geometry must be positive",
			"Set terminal.cols and terminal.rows, e.g. 80 and 24")
	}

	return nil
}

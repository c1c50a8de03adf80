package config

import "time"

// ConfigFileName is the default config file name.
const ConfigFileName = "hostscout.yaml"

// Config represents the complete hostscout.yaml configuration file.
type Config struct {
	// Listen is the address the websocket gateway binds to.
	Listen string `yaml:"listen" mapstructure:"listen"`

	// DataFile is the path of the JSON blob holding the host registry.
	DataFile string `yaml:"data_file" mapstructure:"data_file"`

	// SSHTimeout bounds every SSH connect attempt.
	SSHTimeout time.Duration `yaml:"ssh_timeout" mapstructure:"ssh_timeout"`

	// HostDelay is the pacing delay between hosts within a scheduler pass.
	HostDelay time.Duration `yaml:"host_delay" mapstructure:"host_delay"`

	// CycleInterval is the sleep between full scheduler passes.
	CycleInterval time.Duration `yaml:"cycle_interval" mapstructure:"cycle_interval"`

	// PumpInterval paces the terminal output pump when the channel is quiet.
	PumpInterval time.Duration `yaml:"pump_interval" mapstructure:"pump_interval"`

	Terminal TerminalConfig `yaml:"terminal" mapstructure:"terminal"`
}

// TerminalConfig holds the initial pseudo-terminal geometry for new sessions.
type TerminalConfig struct {
	Cols int `yaml:"cols" mapstructure:"cols"`
	Rows int `yaml:"rows" mapstructure:"rows"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:        ":5000",
		DataFile:      "data/hosts.json",
		SSHTimeout:    10 * time.Second,
		HostDelay:     500 * time.Millisecond,
		CycleInterval: 5 * time.Second,
		PumpInterval:  10 * time.Millisecond,
		Terminal: TerminalConfig{
			Cols: 80,
			Rows: 24,
		},
	}
}

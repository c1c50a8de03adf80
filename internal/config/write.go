package config

import (
	"bytes"
	"os"

	"github.com/hostscout/hostscout/internal/errors"
	"gopkg.in/yaml.v3"
)

const fileHeader = `# hostscout configuration
#
# Durations use Go syntax: 10s, 500ms, 1m.
`

// fileView is the on-disk shape of Config; durations are written as
// strings so the file stays human-editable.
type fileView struct {
	Listen        string         `yaml:"listen"`
	DataFile      string         `yaml:"data_file"`
	SSHTimeout    string         `yaml:"ssh_timeout"`
	HostDelay     string         `yaml:"host_delay"`
	CycleInterval string         `yaml:"cycle_interval"`
	PumpInterval  string         `yaml:"pump_interval"`
	Terminal      TerminalConfig `yaml:"terminal"`
}

// Write creates a starter config file at path with the default values.
// Fails if the file already exists unless force is set.
func Write(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrConfig,
				"Config file already exists: "+path,
				"Use --force to overwrite it")
		}
	}

	def := DefaultConfig()
	view := fileView{
		Listen:        def.Listen,
		DataFile:      def.DataFile,
		SSHTimeout:    def.SSHTimeout.String(),
		HostDelay:     def.HostDelay.String(),
		CycleInterval: def.CycleInterval.String(),
		PumpInterval:  def.PumpInterval.String(),
		Terminal:      def.Terminal,
	}

	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to render config", "")
	}
	if err := enc.Close(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to render config", "")
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write "+path,
			"Check directory permissions")
	}
	return nil
}

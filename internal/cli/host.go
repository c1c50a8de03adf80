package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hostscout/hostscout/internal/errors"
	"github.com/hostscout/hostscout/internal/logger"
	"github.com/hostscout/hostscout/internal/registry"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// host add flags
var (
	hostAddName        string
	hostAddAddress     string
	hostAddPort        int
	hostAddUser        string
	hostAddGroup       string
	hostAddDescription string
	hostAddPassword    string
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Manage the host inventory",
}

var hostAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a host for monitoring",
	Long: `Add a host to the inventory.

The SSH password is prompted for unless --password is given. Username
and port fall back to your ssh_config entry for the address, then to
root and 22.

Examples:
  hostscout host add --name web-1 --address 10.0.0.5
  hostscout host add --name db --address db.internal --user admin --group prod`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostAddCommand()
	},
}

var hostListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered hosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostListCommand()
	},
}

var hostRemoveCmd = &cobra.Command{
	Use:   "remove <host-id>",
	Short: "Remove a host from the inventory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostRemoveCommand(args[0])
	},
}

// openRegistry loads the inventory behind the configured data file.
func openRegistry() (*registry.Registry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	reg := registry.New(registry.NewFileStore(cfg.DataFile), logger.Default())
	if err := reg.Load(); err != nil {
		return nil, err
	}
	return reg, nil
}

func hostAddCommand() error {
	if hostAddName == "" || hostAddAddress == "" {
		return errors.New(errors.ErrConfig,
			"Both --name and --address are required",
			"Example: hostscout host add --name web-1 --address 10.0.0.5")
	}

	secret := hostAddPassword
	if secret == "" {
		fmt.Fprintf(os.Stderr, "Password for %s: ", hostAddAddress)
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read password",
				"Pass --password when stdin is not a terminal.")
		}
		secret = string(raw)
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}

	rec := registry.HostRecord{
		ID:          registry.NewHostID(),
		Name:        hostAddName,
		Address:     hostAddAddress,
		Port:        hostAddPort,
		Username:    hostAddUser,
		Secret:      secret,
		Description: hostAddDescription,
		Group:       hostAddGroup,
		Metrics:     registry.EmptySnapshot(registry.StatusChecking),
	}
	if err := reg.Add(rec); err != nil {
		return err
	}
	reg.Flush()

	fmt.Printf("✓ Added host '%s' (%s)\n", rec.Name, rec.ID)
	return nil
}

func hostListCommand() error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}

	hosts := reg.RedactedList()
	if len(hosts) == 0 {
		fmt.Println("No hosts registered. Add one with 'hostscout host add'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tADDRESS\tGROUP\tSTATUS\tLAST CHECK")
	for _, h := range hosts {
		addr := h.Address
		if h.Port != 0 && h.Port != 22 {
			addr = fmt.Sprintf("%s:%d", h.Address, h.Port)
		}
		last := "never"
		if !h.LastCheck.IsZero() {
			last = h.LastCheck.Local().Format(time.Stamp)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			h.ID, h.Name, addr, h.Group, h.Metrics.Status, last)
	}
	return w.Flush()
}

func hostRemoveCommand(id string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}

	// Accept a host name as well as an id.
	if _, ok := reg.Get(id); !ok {
		for _, h := range reg.List() {
			if strings.EqualFold(h.Name, id) {
				id = h.ID
				break
			}
		}
	}

	if err := reg.Remove(id); err != nil {
		return err
	}
	reg.Flush()

	fmt.Printf("✓ Removed host '%s'\n", id)
	return nil
}

func init() {
	hostAddCmd.Flags().StringVar(&hostAddName, "name", "", "display name")
	hostAddCmd.Flags().StringVar(&hostAddAddress, "address", "", "hostname or IP")
	hostAddCmd.Flags().IntVar(&hostAddPort, "port", 22, "SSH port")
	hostAddCmd.Flags().StringVar(&hostAddUser, "user", "", "SSH username (default from ssh_config, then root)")
	hostAddCmd.Flags().StringVar(&hostAddGroup, "group", "", "group label")
	hostAddCmd.Flags().StringVar(&hostAddDescription, "description", "", "free-form description")
	hostAddCmd.Flags().StringVar(&hostAddPassword, "password", "", "SSH password (prompted if omitted)")

	hostCmd.AddCommand(hostAddCmd)
	hostCmd.AddCommand(hostListCmd)
	hostCmd.AddCommand(hostRemoveCmd)
	rootCmd.AddCommand(hostCmd)
}

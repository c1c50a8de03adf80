package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hostscout/hostscout/internal/collector"
	"github.com/hostscout/hostscout/internal/config"
	"github.com/hostscout/hostscout/internal/errors"
	"github.com/hostscout/hostscout/internal/events"
	"github.com/hostscout/hostscout/internal/gateway"
	"github.com/hostscout/hostscout/internal/logger"
	"github.com/hostscout/hostscout/internal/registry"
	"github.com/hostscout/hostscout/internal/scheduler"
	"github.com/hostscout/hostscout/internal/terminal"
	"github.com/hostscout/hostscout/pkg/sshutil"
	"github.com/spf13/cobra"
)

var serveListenFlag string

// serveCmd runs the monitoring daemon.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitoring daemon",
	Long: `Start the scheduler and the websocket gateway.

The scheduler polls every registered host over SSH on a fixed cycle
and publishes metric updates; the gateway serves them on /ws/monitor
and multiplexes interactive terminals on /ws/terminal.

Examples:
  hostscout serve
  hostscout serve --listen :8080
  hostscout serve --config /etc/hostscout.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand()
	},
}

func serveCommand() error {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListenFlag != "" {
		cfg.Listen = serveListenFlag
	}

	log := logger.Default()

	reg := registry.New(registry.NewFileStore(cfg.DataFile), log)
	if err := reg.Load(); err != nil {
		return err
	}
	log.Info("loaded %d hosts from %s", reg.Len(), cfg.DataFile)

	bus := events.NewBus(log)
	dialer := sshutil.NewDialer()

	col := collector.New(dialer, cfg.SSHTimeout, log)
	sched := scheduler.New(reg, col, bus, cfg.HostDelay, cfg.CycleInterval, log)
	go sched.Run(ctx)

	manager := terminal.NewManager(reg, dialer, bus, terminal.Options{
		DialTimeout:  cfg.SSHTimeout,
		PumpInterval: cfg.PumpInterval,
		Cols:         cfg.Terminal.Cols,
		Rows:         cfg.Terminal.Rows,
	}, log)

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: gateway.NewServer(bus, manager, sched, reg, log).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on %s", cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		reg.Flush()
		return nil
	case err := <-errCh:
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to listen on %s", cfg.Listen),
			"Check the address isn't already in use, or pass --listen.")
	}
}

// loadConfig resolves, loads, and validates the effective config.
// A missing config file is fine: defaults apply.
func loadConfig() (*config.Config, error) {
	path, err := config.Find(Config())
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	serveCmd.Flags().StringVar(&serveListenFlag, "listen", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

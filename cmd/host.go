package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crosswire/pkg/config"
	"crosswire/pkg/contract"
	"crosswire/pkg/logger"
	"crosswire/pkg/transport"
	"crosswire/pkg/transport/pipe"

	"github.com/spf13/cobra"
)

var hostPushInterval int

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Serve the main side of the contract over stdin/stdout",
	Long:  "Reads frames from stdin, writes frames to stdout, and logs to stderr. Normally spawned by the panel command, but runs against any peer that speaks the frame protocol.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.host")

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runHost(runCtx, cfg, log); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Host failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(hostCmd)

	hostCmd.Flags().IntVar(&hostPushInterval, "interval", 0, "seconds between notify pushes (0 uses config)")
}

func runHost(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	api, err := newDemoAPI()
	if err != nil {
		return err
	}

	endpoint, err := pipe.NewMainEndpoint(cfg.Host.WindowID, os.Stdin, os.Stdout, log)
	if err != nil {
		return fmt.Errorf("open stdio endpoint: %w", err)
	}

	handlers := contract.NewHandlers()
	err = contract.HandleTwoWay(handlers, api.fetchData, func(_ context.Context, meta transport.Meta, req fetchDataRequest) (fetchDataResult, error) {
		if req.ID < 0 {
			return fetchDataResult{}, fmt.Errorf("no item with id %d", req.ID)
		}
		log.Debug("Fetch handled", "window_id", meta.WindowID, "item_id", req.ID)
		return fetchDataResult{Name: itemName(req.ID)}, nil
	})
	if err != nil {
		return err
	}
	err = contract.HandleOneWay(handlers, api.logMessage, func(meta transport.Meta, text string) {
		log.Info("Renderer log line", "window_id", meta.WindowID, "text", text)
	})
	if err != nil {
		return err
	}
	if err := api.contract.FromRenderer(endpoint, handlers); err != nil {
		return err
	}

	sender, err := api.contract.ToRenderer(endpoint)
	if err != nil {
		return err
	}

	interval := cfg.Host.PushIntervalSeconds
	if hostPushInterval > 0 {
		interval = hostPushInterval
	}
	if interval <= 0 {
		interval = 1
	}

	pushCtx, stopPushes := context.WithCancel(ctx)
	defer stopPushes()
	go pushTicks(pushCtx, sender, api, time.Duration(interval)*time.Second, log)

	log.Info("Host serving on stdio", "window_id", cfg.Host.WindowID, "push_interval_s", interval)
	return endpoint.Run(ctx)
}

// pushTicks sends a notify push on every tick until ctx is canceled.
// Pushes racing endpoint shutdown fail with ErrEndpointClosed; that is
// teardown noise, not a fault.
func pushTicks(ctx context.Context, sender *contract.Sender, api *demoAPI, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sequence := 0
	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			sequence++
			text := fmt.Sprintf("tick %d at %s", sequence, tick.Format(time.TimeOnly))
			if err := contract.Push(sender, api.notify, text); err != nil {
				log.Debug("Push not delivered", "sequence", sequence, "error", err)
			}
		}
	}
}

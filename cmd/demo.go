package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crosswire/pkg/config"
	"crosswire/pkg/contract"
	"crosswire/pkg/logger"
	"crosswire/pkg/transport"
	"crosswire/pkg/transport/inproc"

	"github.com/spf13/cobra"
)

var demoItemID int

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the contract end to end on the in-process runtime",
	Long:  "Builds the panelAPI contract, opens two renderer windows on the in-process runtime, and walks a fetch, a log line, and a targeted push through the bridge.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.demo")

		if err := runDemo(log); err != nil {
			log.Error("Demo failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().IntVar(&demoItemID, "item", 42, "item id fetched through the two-way action")
}

// demoWindow groups one renderer window with its caller and the pushes
// its subscription has delivered.
type demoWindow struct {
	window *inproc.Window
	caller *contract.Caller
	pushes chan string
}

func runDemo(log *slog.Logger) error {
	api, err := newDemoAPI()
	if err != nil {
		return err
	}

	runtime := inproc.New()
	defer runtime.Close()

	logged := make(chan string, 8)
	if err := registerDemoHandlers(runtime.Main(), api, log, logged); err != nil {
		return err
	}

	windows := make([]*demoWindow, 0, 2)
	for _, id := range []string{"left", "right"} {
		dw, err := openDemoWindow(runtime, api, id)
		if err != nil {
			return err
		}
		windows = append(windows, dw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// One-way, renderer to main.
	if err := contract.Notify(windows[0].caller, api.logMessage, "panel booted"); err != nil {
		return fmt.Errorf("notify logMessage: %w", err)
	}
	select {
	case line := <-logged:
		fmt.Printf("main received log: %s\n", line)
	case <-ctx.Done():
		return fmt.Errorf("wait for log line: %w", ctx.Err())
	}

	// Two-way, from each window independently.
	for i, dw := range windows {
		result, err := contract.Invoke(ctx, dw.caller, api.fetchData, fetchDataRequest{ID: demoItemID + i})
		if err != nil {
			return fmt.Errorf("invoke fetchData from %s: %w", dw.window.ID(), err)
		}
		fmt.Printf("%s fetched: %s\n", dw.window.ID(), result.Name)
	}

	// Push targeted at the right window only.
	sender, err := api.contract.ToRenderer(windows[1].window)
	if err != nil {
		return err
	}
	if err := contract.Push(sender, api.notify, "refresh ready"); err != nil {
		return fmt.Errorf("push notify: %w", err)
	}

	select {
	case text := <-windows[1].pushes:
		fmt.Printf("right window received push: %s\n", text)
	case <-ctx.Done():
		return fmt.Errorf("wait for push: %w", ctx.Err())
	}
	select {
	case text := <-windows[0].pushes:
		return fmt.Errorf("left window unexpectedly received push %q", text)
	default:
	}

	fmt.Println("demo complete")
	return nil
}

// registerDemoHandlers covers both renderer-to-main actions on the
// given main transport. Log lines are echoed onto logged for the demo
// output.
func registerDemoHandlers(main transport.MainTransport, api *demoAPI, log *slog.Logger, logged chan<- string) error {
	handlers := contract.NewHandlers()

	err := contract.HandleTwoWay(handlers, api.fetchData, func(_ context.Context, meta transport.Meta, req fetchDataRequest) (fetchDataResult, error) {
		log.Debug("Fetch handled", "window_id", meta.WindowID, "item_id", req.ID)
		return fetchDataResult{Name: itemName(req.ID)}, nil
	})
	if err != nil {
		return err
	}

	err = contract.HandleOneWay(handlers, api.logMessage, func(meta transport.Meta, text string) {
		logged <- fmt.Sprintf("[%s] %s", meta.WindowID, text)
	})
	if err != nil {
		return err
	}

	return api.contract.FromRenderer(main, handlers)
}

// openDemoWindow creates one renderer window, exposes the bridge into
// its scope, and subscribes it to notify pushes.
func openDemoWindow(runtime *inproc.Runtime, api *demoAPI, id string) (*demoWindow, error) {
	window, err := runtime.NewWindow(id)
	if err != nil {
		return nil, err
	}

	if err := api.contract.Expose(window.Renderer(), window.Scope()); err != nil {
		return nil, fmt.Errorf("expose bridge in %s: %w", id, err)
	}

	caller, err := api.contract.ToMain(window.Scope())
	if err != nil {
		return nil, err
	}

	pushes := make(chan string, 8)
	receivers := contract.NewReceivers()
	if err := contract.OnPush(receivers, api.notify, func(text string) {
		pushes <- text
	}); err != nil {
		return nil, err
	}
	if _, err := api.contract.FromMain(window.Scope(), receivers); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", id, err)
	}

	return &demoWindow{window: window, caller: caller, pushes: pushes}, nil
}

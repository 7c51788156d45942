package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"crosswire/pkg/config"
	"crosswire/pkg/contract"
	"crosswire/pkg/logger"
	"crosswire/pkg/transport"
	"crosswire/pkg/transport/pipe"
	"crosswire/pkg/ui/panel"

	"github.com/spf13/cobra"
)

var (
	panelHostBin string
	panelPlain   bool
	panelHostLog string
	panelItemID  int
)

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Spawn a host and drive it from a terminal panel",
	Long:  "Starts the host as a child process wired over stdin/stdout pipes, exposes the panelAPI bridge on the renderer side, and opens a terminal panel on it. --plain runs one scripted round instead of the TUI.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runPanel(runCtx, cfg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Printf("panel failed: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(panelCmd)

	panelCmd.Flags().StringVar(&panelHostBin, "host-bin", "", "host binary to spawn (default: this executable)")
	panelCmd.Flags().BoolVar(&panelPlain, "plain", false, "run one scripted round without the TUI")
	panelCmd.Flags().StringVar(&panelHostLog, "host-log", "", "file receiving the host's stderr (default: discarded)")
	panelCmd.Flags().IntVar(&panelItemID, "item", 42, "item id fetched in plain mode")
}

// hostProcess is a spawned host child plus the parent ends of its
// stdio pipes.
type hostProcess struct {
	cmd     *exec.Cmd
	name    string
	stdout  *os.File
	stdin   *os.File
	logFile *os.File
}

// shutdown closes the host's stdin so its frame loop sees EOF, then
// reaps the child.
func (p *hostProcess) shutdown() {
	_ = p.stdin.Close()
	_ = p.cmd.Wait()
	_ = p.stdout.Close()
	if p.logFile != nil {
		_ = p.logFile.Close()
	}
}

func runPanel(ctx context.Context, cfg *config.Config) error {
	api, err := newDemoAPI()
	if err != nil {
		return err
	}

	// The terminal belongs to the TUI, so endpoint logs are discarded
	// unless we run plain, where stderr is free.
	logWriter := io.Writer(io.Discard)
	if panelPlain {
		logWriter = os.Stderr
	}
	log, err := logger.NewWithWriter(cfg.Logging, logWriter)
	if err != nil {
		return err
	}
	log = log.With("component", "cmd.panel")

	host, err := startHost(ctx, cfg)
	if err != nil {
		return err
	}
	defer host.shutdown()
	log.Info("Host started", "bin", host.name, "pid", host.cmd.Process.Pid)

	endpoint, err := pipe.NewRendererEndpoint(cfg.Panel.WindowID, host.stdout, host.stdin, log)
	if err != nil {
		return err
	}

	// The UI quits when the endpoint loop ends, whichever side dies
	// first.
	uiCtx, stopUI := context.WithCancel(ctx)
	defer stopUI()

	endpointDone := make(chan error, 1)
	go func() {
		endpointDone <- endpoint.Run(ctx)
		stopUI()
	}()

	scope := transport.NewMapScope()
	if err := api.contract.Expose(endpoint, scope); err != nil {
		return err
	}

	caller, err := api.contract.ToMain(scope)
	if err != nil {
		return err
	}

	pushes := make(chan panel.Push, 16)
	receivers := contract.NewReceivers()
	err = contract.OnPush(receivers, api.notify, func(text string) {
		select {
		case pushes <- panel.Push{Action: api.notify.Name(), Text: text}:
		default:
			// A stalled UI drops pushes rather than blocking dispatch.
		}
	})
	if err != nil {
		return err
	}
	unsubscribe, err := api.contract.FromMain(scope, receivers)
	if err != nil {
		return err
	}
	defer unsubscribe()

	actions := panel.Actions{
		FetchItem: func(ctx context.Context, id int) (string, error) {
			callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			result, err := contract.Invoke(callCtx, caller, api.fetchData, fetchDataRequest{ID: id})
			if err != nil {
				return "", err
			}
			return result.Name, nil
		},
		LogLine: func(text string) error {
			return contract.Notify(caller, api.logMessage, text)
		},
	}

	var runErr error
	if panelPlain {
		runErr = runPlainRound(uiCtx, actions, pushes)
	} else {
		info := panel.Info{WindowID: cfg.Panel.WindowID, HostName: host.name}
		runErr = panel.Run(uiCtx, actions, pushes, info)
	}

	select {
	case err := <-endpointDone:
		if err != nil {
			return fmt.Errorf("host connection failed: %w", err)
		}
	default:
	}

	return runErr
}

// startHost launches the host child. With no --host-bin and no
// configured binary it re-executes the current binary with the host
// subcommand.
func startHost(ctx context.Context, cfg *config.Config) (*hostProcess, error) {
	bin := strings.TrimSpace(panelHostBin)
	if bin == "" {
		bin = strings.TrimSpace(cfg.Panel.HostBin)
	}
	if bin == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve own binary: %w", err)
		}
		bin = self
	}

	// Parent keeps stdinW and stdoutR; the child gets the other ends.
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		_ = stdinR.Close()
		_ = stdinW.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	child := exec.CommandContext(ctx, bin, "host")
	child.Stdin = stdinR
	child.Stdout = stdoutW

	var logFile *os.File
	if panelHostLog != "" {
		logFile, err = os.OpenFile(panelHostLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			_ = stdinR.Close()
			_ = stdinW.Close()
			_ = stdoutR.Close()
			_ = stdoutW.Close()
			return nil, fmt.Errorf("open host log: %w", err)
		}
		child.Stderr = logFile
	}

	if err := child.Start(); err != nil {
		_ = stdinR.Close()
		_ = stdinW.Close()
		_ = stdoutR.Close()
		_ = stdoutW.Close()
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, fmt.Errorf("start host %s: %w", bin, err)
	}

	// The child holds its own copies now.
	_ = stdinR.Close()
	_ = stdoutW.Close()

	return &hostProcess{
		cmd:     child,
		name:    filepath.Base(bin),
		stdout:  stdoutR,
		stdin:   stdinW,
		logFile: logFile,
	}, nil
}

// runPlainRound exercises the contract once without the TUI: one
// fetch, one log line, and a bounded wait for a push.
func runPlainRound(ctx context.Context, actions panel.Actions, pushes <-chan panel.Push) error {
	name, err := actions.FetchItem(ctx, panelItemID)
	if err != nil {
		return fmt.Errorf("fetch item %d: %w", panelItemID, err)
	}
	fmt.Printf("fetchData(%d) = %s\n", panelItemID, name)

	if err := actions.LogLine("plain panel checked in"); err != nil {
		return fmt.Errorf("send log line: %w", err)
	}
	fmt.Println("logMessage sent")

	select {
	case push := <-pushes:
		fmt.Printf("push received on %s: %s\n", push.Action, push.Text)
	case <-time.After(5 * time.Second):
		fmt.Println("no push within 5s")
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

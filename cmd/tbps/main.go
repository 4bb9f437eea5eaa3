package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/imathwy/tbps/internal/export"
	"github.com/imathwy/tbps/internal/search"
	"github.com/imathwy/tbps/internal/setup"
	"github.com/imathwy/tbps/internal/setup/logger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const usage = `Usage: tbps <command> [flags]

Commands:
  search     Find theorems similar to a Lean expression
  health     Check backend health (-watch to keep polling)
  mock-info  Show mock server capabilities
  examples   List example expressions
  history    Show recent searches from the event stream

Run 'tbps <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	_ = godotenv.Load()

	command, args := os.Args[1], os.Args[2:]

	var err error
	switch command {
	case "search":
		err = runSearch(args)
	case "health":
		err = runHealth(args)
	case "mock-info":
		err = runMockInfo(args)
	case "examples":
		printExamples(os.Stdout, search.Examples())
	case "history":
		err = runHistory(args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap loads config and wires dependencies, applying a -server override.
func bootstrap(ctx context.Context, serverFlag string) (*setup.Dependencies, error) {
	cfg, err := setup.LoadConfig()
	if err != nil {
		return nil, err
	}
	if serverFlag != "" {
		cfg.Server = serverFlag
	}

	log := logger.NewConsole(cfg.LogLevel)
	return setup.Wire(ctx, cfg, &log)
}

func setupGracefulShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	expression := fs.String("e", "", "Lean expression to search for")
	example := fs.Int("example", 0, "Use built-in example N (see 'tbps examples') instead of -e")
	k := fs.String("k", "", "Number of results (1-100, default 20)")
	nodeRatio := fs.String("node-ratio", "", "Node ratio filter (1.0-2.0, default: auto)")
	serverName := fs.String("server", "", "Backend to query: mock or production")
	exportDir := fs.String("export", "", "Write JSON and CSV results into this directory")
	asJSON := fs.Bool("json", false, "Print the raw response as JSON")
	fs.Parse(args)

	if *example > 0 {
		list := search.Examples()
		if *example > len(list) {
			return fmt.Errorf("example must be between 1 and %d", len(list))
		}
		*expression = list[*example-1].Expression
	}

	ctx, cancel := setupGracefulShutdown()
	defer cancel()

	deps, err := bootstrap(ctx, *serverName)
	if err != nil {
		return err
	}
	defer deps.Close()

	snap, err := deps.Orchestrator.Submit(ctx, search.Input{
		Expression: *expression,
		K:          *k,
		NodeRatio:  *nodeRatio,
	})
	if err != nil {
		return err
	}

	if snap.State == search.StateFailed {
		if len(snap.FieldErrors) > 0 {
			printFieldErrors(os.Stderr, snap.FieldErrors)
			return errors.New("invalid search parameters")
		}
		return fmt.Errorf("search failed: %s", snap.Message)
	}

	if *asJSON {
		data, err := export.ToJSON(snap.Response)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(data))
	} else {
		printResults(os.Stdout, snap.Server, snap.Response)
	}

	if *exportDir != "" {
		paths, err := export.WriteFiles(*exportDir, snap.Response)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(os.Stderr, "Exported", p)
		}
	}

	return nil
}

func runHealth(args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	serverName := fs.String("server", "", "Backend to check: mock or production")
	watch := fs.Bool("watch", false, "Keep polling until interrupted")
	fs.Parse(args)

	ctx, cancel := setupGracefulShutdown()
	defer cancel()

	deps, err := bootstrap(ctx, *serverName)
	if err != nil {
		return err
	}
	defer deps.Close()

	if !*watch {
		<-deps.Poller.Refresh()
		status := deps.Poller.Status()
		printHealth(os.Stdout, status)
		if !status.Healthy() {
			return errors.New("backend unavailable")
		}
		return nil
	}

	updates := deps.Poller.Subscribe()
	deps.Poller.Start(ctx)

	for {
		select {
		case status, ok := <-updates:
			if !ok {
				return nil
			}
			printHealth(os.Stdout, status)
		case <-ctx.Done():
			return nil
		}
	}
}

func runMockInfo(args []string) error {
	fs := flag.NewFlagSet("mock-info", flag.ExitOnError)
	serverName := fs.String("server", "", "Backend to query (only mock is supported)")
	fs.Parse(args)

	ctx, cancel := setupGracefulShutdown()
	defer cancel()

	deps, err := bootstrap(ctx, *serverName)
	if err != nil {
		return err
	}
	defer deps.Close()

	info, err := deps.Client.GetMockInfo(ctx, deps.Selection.Get())
	if err != nil {
		return err
	}

	return printJSON(os.Stdout, info)
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	n := fs.Int64("n", 10, "Number of recent searches to show")
	fs.Parse(args)

	if *n < 1 {
		return fmt.Errorf("-n must be at least 1, got %d", *n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deps, err := bootstrap(ctx, "")
	if err != nil {
		return err
	}
	defer deps.Close()

	if deps.Events == nil {
		return errors.New("event stream not available (set REDIS_ADDR)")
	}

	events, err := deps.Events.Recent(ctx, *n)
	if err != nil {
		return err
	}

	printHistory(os.Stdout, events)
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/yanissrairi/kicad-mcp-server/internal/api"
	"github.com/yanissrairi/kicad-mcp-server/internal/broker"
	"github.com/yanissrairi/kicad-mcp-server/internal/config"
	"github.com/yanissrairi/kicad-mcp-server/internal/doctor"
	"github.com/yanissrairi/kicad-mcp-server/internal/journal"
	"github.com/yanissrairi/kicad-mcp-server/internal/log"
	"github.com/yanissrairi/kicad-mcp-server/internal/pyproc"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

const defaultConfigPath = "config.yaml"

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	if cmd == "--version" {
		return runVersion(args)
	}

	switch cmd {
	case "serve", "start":
		if hasHelpFlag(args) {
			printServeHelp()
			return 0
		}
		return runServe(args)
	case "doctor":
		if hasHelpFlag(args) {
			printDoctorHelp()
			return 0
		}
		return runDoctor(args)
	case "config":
		return runConfigNoun(args)
	case "version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "lock":
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigLock(actionArgs)
	case "check":
		if hasHelpFlag(actionArgs) {
			printDoctorHelp()
			return 0
		}
		return runDoctor(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("kicad-mcp-server starting", "version", version, "config", *configPath)

	result := doctor.New(cfg).Validate()
	for _, w := range result.Warnings {
		logger.Warn("preflight warning", "category", w.Category, "field", w.Field, "message", w.Message)
	}
	if !result.Valid {
		fmt.Fprint(os.Stderr, doctor.FormatHuman(result))
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var brokerOpts []broker.Option
	brokerOpts = append(brokerOpts, broker.WithPolicy(broker.Policy{
		Default: cfg.Broker.DefaultTimeout,
		Long:    cfg.Broker.LongTimeout,
	}))

	var jrn *journal.Journal
	if cfg.Journal.Path != "" {
		jrn, err = journal.Open(ctx, cfg.Journal.Path)
		if err != nil {
			logger.Error("failed to open journal", "path", cfg.Journal.Path, "error", err)
			return 1
		}
		defer jrn.Close()
		logger.Info("journal opened", "path", cfg.Journal.Path)
		brokerOpts = append(brokerOpts, broker.WithCompletionHook(jrn.Hook()))
	}

	b := broker.New(brokerOpts...)
	proc := pyproc.New(pyproc.Config{
		Interpreter: cfg.KiCAD.Interpreter,
		ScriptPath:  cfg.KiCAD.Script,
		Env:         cfg.KiCAD.Env,
	}, b.HandleChunk)

	if err := proc.Start(ctx); err != nil {
		logger.Error("failed to start scripting process", "error", err)
		return 1
	}
	b.Start(proc)
	logger.Info("scripting process started", "pid", proc.PID())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)

	if cfg.API.Enabled {
		var jr api.JournalReader = emptyJournal{}
		if jrn != nil {
			jr = jrn
		}
		apiServer := api.New(api.Config{
			Listen: cfg.API.Listen,
			APIKey: cfg.API.APIKey,
		}, b, jr, proc, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	logger.Info("kicad-mcp-server running (press Ctrl+C to stop)")

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		exitCode = 1
	}

	// Reject queued callers before the child goes away, then tear the
	// child down.
	cancel()
	b.Stop()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := proc.Stop(stopCtx); err != nil {
		logger.Warn("scripting process shutdown was forced", "error", err)
	}

	logger.Info("kicad-mcp-server stopped")
	return exitCode
}

// emptyJournal serves the API when journaling is disabled.
type emptyJournal struct{}

func (emptyJournal) Recent(context.Context, int) ([]journal.Entry, error) {
	return nil, nil
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()

	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render report: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if err := config.Lock(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}

	fmt.Printf("Config integrity hashes updated for %s\n", *configPath)
	return 0
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("kicad-mcp-server %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	resolvedCommit := strings.TrimSpace(gitCommit)
	if resolvedCommit == "" || resolvedCommit == "unknown" {
		resolvedCommit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if resolvedCommit != "" {
		info.Commit = shortenCommit(resolvedCommit)
	}

	resolvedBuildTime := strings.TrimSpace(buildDate)
	if resolvedBuildTime == "" || resolvedBuildTime == "unknown" {
		resolvedBuildTime = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if t, err := time.Parse(time.RFC3339Nano, resolvedBuildTime); err == nil {
		info.BuildTime = t.UTC().Format(time.RFC3339)
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Print(`kicad-mcp-server - Command broker for the KiCAD scripting process

Usage:
  kicad-mcp-server <command> [flags]

Commands:
  serve             Start the server in the foreground (alias: start)
  doctor            Validate configuration and the local KiCAD environment
  config lock       Authorize current config (update integrity hashes)
  config check      Alias for doctor
  version           Show version information
  help              Show this help message

Use 'kicad-mcp-server <command> --help' for command-specific flags.
`)
}

func printServeHelp() {
	fmt.Println("Usage: kicad-mcp-server serve [--config PATH]")
	fmt.Println("Start the server in the foreground.")
}

func printDoctorHelp() {
	fmt.Println("Usage: kicad-mcp-server doctor [--config PATH] [--json]")
	fmt.Println("Validate configuration, interpreter, script, and journal settings.")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: kicad-mcp-server config <action> [flags]")
	fmt.Fprintln(w, "Actions: lock, check")
}

func printConfigLockHelp() {
	fmt.Println("Usage: kicad-mcp-server config lock [--config PATH]")
	fmt.Println("Recompute and store the config integrity hashes.")
}

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/p-arndt/podkernel/internal/config"
	"github.com/p-arndt/podkernel/internal/kernelspec"
)

func printMainUsage() {
	fmt.Fprint(os.Stderr, `podkernel: manage Jupyter kernels running in containers

Usage:
  podkernel [options] list                                      List installed podkernels
  podkernel [options] delete [--doit] <kernel-id>               Delete a kernel (dry run unless --doit)
  podkernel [options] install [--display-name <name>] [--language <lang>]
                              [--build] <image|path> [args...]  Install a new kernel
  podkernel [options] build <kernel-id>                         Build/pull a kernel image, print its ID
  podkernel [options] start <kernel-id> <connection-file>       Start a kernel

Options (all commands, also settable via PODKERNEL_* environment variables):
  --config <path>              Path to podkernel.yaml
  --log-level <level>          Log level: debug, info, warn, error
  --log-format <format>        Log output: text, json
  --container-command <cmd>    Container runtime command (default: podman)
  --kernelspec-dir <dir>       Override the kernelspec store location

Install ARGUMENTS are split on "--" into sections:

  [run args] -- [container command args]

or, with --build:

  [build args] -- [run args] -- [container command args]
`)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("podkernel", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = printMainUsage
	cfgPath := fs.String("config", os.Getenv(config.EnvPrefix+"_CONFIG"), "path to podkernel.yaml")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "log output format (text, json)")
	containerCommand := fs.String("container-command", "", "container runtime command")
	kernelspecDir := fs.String("kernelspec-dir", "", "override the kernelspec store location")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	if *containerCommand != "" {
		cfg.ContainerCommand = *containerCommand
	}
	if *kernelspecDir != "" {
		cfg.KernelspecDir = *kernelspecDir
	}

	logger := newLogger(cfg)

	root := cfg.KernelspecDir
	if root == "" {
		root, err = kernelspec.RootFor(runtime.GOOS)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	store := kernelspec.NewStore(root, logger)
	logger.Debug("kernelspec store resolved", "kernelspec_dir", root)

	if fs.NArg() == 0 {
		printMainUsage()
		return 2
	}

	switch fs.Arg(0) {
	case "list":
		return runList(store)
	case "delete":
		return runDelete(store, fs.Args()[1:])
	case "install":
		return runInstall(logger, store, fs.Args()[1:])
	case "build":
		return runBuild(cfg, logger, store, fs.Args()[1:])
	case "start":
		return runStart(cfg, logger, store, fs.Args()[1:])
	case "help", "-h", "--help":
		printMainUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", fs.Arg(0))
		printMainUsage()
		return 2
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler).With("run_id", uuid.New().String()[:8])
}

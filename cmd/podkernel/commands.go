package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/p-arndt/podkernel/internal/config"
	"github.com/p-arndt/podkernel/internal/kernel"
	"github.com/p-arndt/podkernel/internal/kernelspec"
	"github.com/p-arndt/podkernel/internal/podman"
)

func runList(store *kernelspec.Store) int {
	specs, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ids := make([]string, 0, len(specs))
	for id := range specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		age := ""
		if installedAt, err := store.InstalledAt(id); err == nil {
			age = units.HumanDuration(time.Since(installedAt)) + " ago"
		}
		fmt.Printf("%s\t%s\t%s\n", id, specs[id].DisplayName, age)
	}
	return 0
}

func runDelete(store *kernelspec.Store, args []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	doit := fs.Bool("doit", false, "actually delete the kernel (default is a dry run)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: podkernel delete [--doit] <kernel-id>")
		return 1
	}

	if err := store.Delete(fs.Arg(0), *doit); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runInstall(logger *slog.Logger, store *kernelspec.Store, args []string) int {
	fs := flag.NewFlagSet("install", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	displayName := fs.String("display-name", envOrDefault(config.EnvPrefix+"_DISPLAY_NAME", ""), "display name for the kernel")
	language := fs.String("language", envOrDefault(config.EnvPrefix+"_LANGUAGE", "python"), "language the kernel is for")
	build := fs.Bool("build", false, "image name is a path to a Containerfile/Dockerfile directory")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: podkernel install [--display-name <name>] [--language <lang>] [--build] <image|path> [args...]")
		return 1
	}

	imageName := fs.Arg(0)
	log := logger

	if *build {
		path, err := normalizeBuildPath(imageName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		imageName = path
	}
	log = log.With("image_name", imageName)

	if *displayName == "" {
		name := imageName
		if *build {
			name = filepath.Base(imageName)
		}
		*displayName = fmt.Sprintf("%s (%s)", name, *language)
		log.Debug("automatically determined a display name")
	}
	log = log.With("display_name", *displayName)

	sections := kernel.PartitionArgs(log, fs.Args()[1:], *build)
	if err := kernel.ValidateArgs(sections); err != nil {
		fmt.Fprintf(os.Stderr, "Error: supplied argument lists have options which are not allowed:\n%v\n", err)
		return 1
	}

	meta := &kernelspec.PodKernelMetadata{
		ImageName: imageName,
		Build:     *build,
		BuildArgs: sections.BuildArgs,
		RunArgs:   sections.RunArgs,
		CmdArgs:   sections.CmdArgs,
	}

	id, _, _, err := store.InstallDeterministic(meta, *displayName, *language)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(id)
	return 0
}

// normalizeBuildPath stores a build context under the user's home directory
// as a ~/ relative path so the kernelspec survives a home move; other paths
// are stored absolute.
func normalizeBuildPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return abs, nil
	}
	rel, err := filepath.Rel(home, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs, nil
	}
	return "~/" + filepath.ToSlash(rel), nil
}

func runBuild(cfg *config.Config, logger *slog.Logger, store *kernelspec.Store, args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: podkernel build <kernel-id>")
		return 1
	}

	rt, err := podman.NewClient(cfg.ContainerCommand, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	launcher := kernel.NewLauncher(store, rt, logger)
	imageID, err := launcher.ResolveImage(context.Background(), fs.Arg(0), true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(imageID)
	return 0
}

func runStart(cfg *config.Config, logger *slog.Logger, store *kernelspec.Store, args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: podkernel start <kernel-id> <connection-file>")
		return 1
	}

	rt, err := podman.NewClient(cfg.ContainerCommand, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	launcher := kernel.NewLauncher(store, rt, logger)
	code, err := launcher.Start(context.Background(), fs.Arg(0), fs.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return code
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

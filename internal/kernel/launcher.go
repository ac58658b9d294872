package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/p-arndt/podkernel/internal/config"
	"github.com/p-arndt/podkernel/internal/kernelspec"
)

// Sentinel errors
var (
	ErrSpawnFailed = errors.New("failed to spawn container")
)

// ContainerConnectionSpecPath is where the rewritten connection file is
// mounted inside the container.
const ContainerConnectionSpecPath = "/kernel-connection-spec.json"

// connectionSpecEnvVars both point at the mounted connection file; the second
// keeps dockernel-built images working.
var connectionSpecEnvVars = []string{
	config.EnvPrefix + "_CONNECTION_FILE",
	"DOCKERNEL_CONNECTION_FILE",
}

// Launcher orchestrates kernel start: spec loading, image resolution,
// connection-file rewriting, and the container run.
type Launcher struct {
	store    *kernelspec.Store
	runtime  ContainerRuntime
	resolver *Resolver
	logger   *slog.Logger
}

func NewLauncher(store *kernelspec.Store, rt ContainerRuntime, logger *slog.Logger) *Launcher {
	return &Launcher{
		store:    store,
		runtime:  rt,
		resolver: NewResolver(rt, logger),
		logger:   logger,
	}
}

// ResolveImage loads the kernelspec for id and resolves its image, building
// or pulling as required.
func (l *Launcher) ResolveImage(ctx context.Context, id string, pullOnMiss bool) (string, error) {
	spec, err := l.store.Read(id)
	if err != nil {
		return "", err
	}
	meta, err := spec.PodKernelMetadata()
	if err != nil {
		return "", err
	}
	return l.resolver.Resolve(ctx, id, meta, pullOnMiss)
}

// Start runs the kernel container for id against the given Jupyter connection
// file and blocks until the container exits. The container's exit code is
// returned verbatim so the calling process can propagate it.
func (l *Launcher) Start(ctx context.Context, id, connectionFile string) (int, error) {
	log := l.logger.With("kernel_id", id)

	spec, err := l.store.Read(id)
	if err != nil {
		return 0, err
	}
	meta, err := spec.PodKernelMetadata()
	if err != nil {
		return 0, err
	}
	log = log.With("image_name", meta.ImageName, "build", meta.Build)

	imageID, err := l.resolver.Resolve(ctx, id, meta, true)
	if err != nil {
		return 0, err
	}

	log.Debug("rewriting connection file for container", "connection_file", connectionFile)
	ports, err := RewriteConnectionFile(connectionFile)
	if err != nil {
		return 0, err
	}

	absConnectionFile, err := filepath.Abs(connectionFile)
	if err != nil {
		return 0, err
	}

	runArgs := ComposeRunArgs(meta, imageID, absConnectionFile, ports)
	log.Info("starting container", "image_id", imageID, "run_args", runArgs)

	code, err := l.runtime.Run(ctx, runArgs)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	log.Info("container exited", "retcode", code)
	return code, nil
}

// ComposeRunArgs builds the final run argument list: user run args, the
// injected lifecycle/mount/env/port flags, the image ID, then user command
// args.
func ComposeRunArgs(meta *kernelspec.PodKernelMetadata, imageID, connectionFile string, ports []int) []string {
	args := append([]string{}, meta.RunArgs...)

	args = append(args,
		"--rm",
		"-v", fmt.Sprintf("%s:%s:ro", connectionFile, ContainerConnectionSpecPath),
	)
	for _, envVar := range connectionSpecEnvVars {
		args = append(args, "-e", fmt.Sprintf("%s=%s", envVar, ContainerConnectionSpecPath))
	}
	for _, port := range ports {
		args = append(args, "-p", fmt.Sprintf("127.0.0.1:%d:%d", port, port))
	}

	args = append(args, imageID)
	args = append(args, meta.CmdArgs...)
	return args
}

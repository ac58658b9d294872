package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/p-arndt/podkernel/internal/kernelspec"
)

// Sentinel errors
var (
	ErrBuildFailed   = errors.New("image build failed")
	ErrImageNotFound = errors.New("image not found")
)

// Resolver turns a kernel configuration into a usable image ID, building or
// pulling through the container runtime as needed.
type Resolver struct {
	runtime ContainerRuntime
	logger  *slog.Logger
}

func NewResolver(rt ContainerRuntime, logger *slog.Logger) *Resolver {
	return &Resolver{runtime: rt, logger: logger}
}

// Resolve returns the image ID for meta. For build kernels it runs a build
// with an injected id-file capture; otherwise it inspects the image
// reference, optionally pulling once on a miss when pullOnMiss is set. A pull
// failure is not fatal by itself: the image is re-inspected afterwards and
// only a still-absent image is an error.
func (r *Resolver) Resolve(ctx context.Context, kernelID string, meta *kernelspec.PodKernelMetadata, pullOnMiss bool) (string, error) {
	log := r.logger.With("kernel_id", kernelID, "image_name", meta.ImageName)

	if meta.Build {
		return r.build(ctx, log, kernelID, meta)
	}

	log.Debug("inspecting container image")
	imageID, err := r.inspect(ctx, meta.ImageName)
	if err != nil {
		return "", err
	}

	if imageID == "" && pullOnMiss {
		log.Info("image not found, attempting to pull")
		if err := r.runtime.Pull(ctx, meta.ImageName); err != nil {
			// Non-fatal: the re-inspect below decides.
			log.Error("error pulling container image", "error", err)
		}
		imageID, err = r.inspect(ctx, meta.ImageName)
		if err != nil {
			return "", err
		}
		if imageID == "" {
			log.Error("image still not found after attempting pull")
		}
	}

	if imageID == "" {
		return "", fmt.Errorf("%w: %s", ErrImageNotFound, meta.ImageName)
	}
	log.Debug("read image ID from inspect result", "image_id", imageID)
	return imageID, nil
}

func (r *Resolver) build(ctx context.Context, log *slog.Logger, kernelID string, meta *kernelspec.PodKernelMetadata) (string, error) {
	log.Info("building image")

	iidFile, err := os.CreateTemp("", fmt.Sprintf("%s.%s.*.iid", kernelspec.MetadataNamespace, kernelID))
	if err != nil {
		return "", err
	}
	iidPath := iidFile.Name()
	iidFile.Close()
	defer os.Remove(iidPath)

	contextDir, err := expandHome(meta.ImageName)
	if err != nil {
		return "", err
	}

	if err := r.runtime.Build(ctx, meta.BuildArgs, iidPath, contextDir); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrBuildFailed, meta.ImageName, err)
	}

	data, err := os.ReadFile(iidPath)
	if err != nil {
		return "", fmt.Errorf("%w: reading id file: %v", ErrBuildFailed, err)
	}
	imageID := strings.TrimSpace(string(data))
	if imageID == "" {
		return "", fmt.Errorf("%w: empty id file after build", ErrBuildFailed)
	}
	log.Debug("read image ID from file", "image_id", imageID, "iidfile", iidPath)
	return imageID, nil
}

func (r *Resolver) inspect(ctx context.Context, image string) (string, error) {
	infos, err := r.runtime.Inspect(ctx, image)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", nil
	}
	return infos[0].ID, nil
}

// expandHome resolves a leading ~ in a stored build-context path.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

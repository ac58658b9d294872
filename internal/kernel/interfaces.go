package kernel

import (
	"context"

	"github.com/p-arndt/podkernel/internal/podman"
)

// ContainerRuntime is the capability surface the resolver and launcher need
// from a container runtime. podman.Client is the real implementation; tests
// substitute a mock.
type ContainerRuntime interface {
	Build(ctx context.Context, buildArgs []string, iidFile, contextDir string) error
	Inspect(ctx context.Context, image string) ([]podman.ImageInfo, error)
	Pull(ctx context.Context, image string) error
	Run(ctx context.Context, args []string) (int, error)
}

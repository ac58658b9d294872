package kernel

import (
	"context"
	"io"
	"log/slog"

	"github.com/p-arndt/podkernel/internal/podman"
	"github.com/stretchr/testify/mock"
)

type MockContainerRuntime struct {
	mock.Mock
}

func (m *MockContainerRuntime) Build(ctx context.Context, buildArgs []string, iidFile, contextDir string) error {
	args := m.Called(ctx, buildArgs, iidFile, contextDir)
	return args.Error(0)
}

func (m *MockContainerRuntime) Inspect(ctx context.Context, image string) ([]podman.ImageInfo, error) {
	args := m.Called(ctx, image)
	if infos := args.Get(0); infos != nil {
		return infos.([]podman.ImageInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContainerRuntime) Pull(ctx context.Context, image string) error {
	args := m.Called(ctx, image)
	return args.Error(0)
}

func (m *MockContainerRuntime) Run(ctx context.Context, runArgs []string) (int, error) {
	args := m.Called(ctx, runArgs)
	return args.Int(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Package podman drives a podman-compatible container runtime through its
// command line: build, inspect, pull, run. Any CLI speaking that surface
// (podman, docker, nerdctl) works.
package podman

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// ImageInfo is the subset of `inspect` output the tool needs.
type ImageInfo struct {
	ID string `json:"Id"`
}

type Client struct {
	exe    string
	logger *slog.Logger
}

// NewClient resolves command on PATH and returns a client bound to it.
func NewClient(command string, logger *slog.Logger) (*Client, error) {
	exe, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("container command %q not found: %w", command, err)
	}
	logger.Debug("container command discovered", "container_exe", exe)
	return &Client{exe: exe, logger: logger}, nil
}

// Build runs `build [buildArgs] --iidfile <iidFile> <contextDir>` with build
// output streamed to the caller's stdio.
func (c *Client) Build(ctx context.Context, buildArgs []string, iidFile, contextDir string) error {
	args := append([]string{"build"}, buildArgs...)
	args = append(args, "--iidfile", iidFile, contextDir)

	c.logger.Debug("executing build", "build_cmd", args)
	cmd := exec.CommandContext(ctx, c.exe, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Inspect runs `inspect <image>` and parses its JSON output. A non-zero exit
// is tolerated: the runtime exits non-zero for a missing image but its output
// still parses to an empty array, so "not found" and "error" look alike here
// and callers see an empty result for both.
func (c *Client) Inspect(ctx context.Context, image string) ([]ImageInfo, error) {
	cmd := exec.CommandContext(ctx, c.exe, "inspect", image)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("inspect %s: %w", image, err)
		}
	}
	return ParseInspectOutput(out)
}

// ParseInspectOutput decodes `inspect` JSON. Empty output means the image is
// absent.
func ParseInspectOutput(data []byte) ([]ImageInfo, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var infos []ImageInfo
	if err := json.Unmarshal(data, &infos); err != nil {
		return nil, fmt.Errorf("parse inspect output: %w", err)
	}
	return infos, nil
}

// Pull runs `pull <image>` with output streamed to the caller's stdio.
func (c *Client) Pull(ctx context.Context, image string) error {
	c.logger.Debug("executing pull", "image_name", image)
	cmd := exec.CommandContext(ctx, c.exe, "pull", image)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Run executes `run [args]` attached to the caller's stdio and blocks until
// the container exits. The container's exit code is returned; a non-zero code
// is not an error. The error return is reserved for spawn failures.
func (c *Client) Run(ctx context.Context, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, c.exe, append([]string{"run"}, args...)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("run %s: %w", c.exe, err)
	}
	return 0, nil
}

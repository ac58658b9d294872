// Package kernelspec manages Jupyter kernelspec directories for
// container-backed kernels.
//
// Where the term "kernelspec dir" is used, it references the directory in
// which the kernel.json file is present. Where the term "kernelspec store" is
// used, it references the directory where Jupyter will look for kernelspec
// dirs.
package kernelspec

import (
	"encoding/json"
	"fmt"
)

const (
	// SpecFilename is the file Jupyter reads inside each kernelspec dir.
	SpecFilename = "kernel.json"

	// MetadataNamespace is the key under the kernelspec metadata object where
	// podkernel stores its own data. Its presence marks a spec as managed by
	// this tool.
	MetadataNamespace = "podkernel"

	// ConnectionFilePlaceholder is replaced by Jupyter with the path of the
	// connection file when it launches the argv.
	ConnectionFilePlaceholder = "{connection_file}"
)

type InterruptMode string

const (
	InterruptModeSignal  InterruptMode = "signal"
	InterruptModeMessage InterruptMode = "message"
)

// KernelSpec mirrors the kernel.json format Jupyter expects.
type KernelSpec struct {
	Argv          []string                   `json:"argv"`
	DisplayName   string                     `json:"display_name"`
	Language      string                     `json:"language"`
	InterruptMode InterruptMode              `json:"interrupt_mode,omitempty"`
	Env           map[string]string          `json:"env,omitempty"`
	Metadata      map[string]json.RawMessage `json:"metadata,omitempty"`
}

// Managed reports whether the spec carries podkernel metadata.
func (s *KernelSpec) Managed() bool {
	_, ok := s.Metadata[MetadataNamespace]
	return ok
}

// PodKernelMetadata extracts the embedded kernel configuration.
func (s *KernelSpec) PodKernelMetadata() (*PodKernelMetadata, error) {
	raw, ok := s.Metadata[MetadataNamespace]
	if !ok {
		return nil, fmt.Errorf("%w: no %q metadata", ErrCorruptSpec, MetadataNamespace)
	}
	var meta PodKernelMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSpec, err)
	}
	return meta.normalized(), nil
}

// PodKernelMetadata is the authoritative record of how a kernel was
// requested. It is embedded in the kernelspec and is the sole input to
// kernel ID derivation.
type PodKernelMetadata struct {
	// ImageName is a container image reference, or a path to a build context
	// when Build is true.
	ImageName string   `json:"image_name"`
	Build     bool     `json:"build"`
	BuildArgs []string `json:"build_args"`
	RunArgs   []string `json:"run_args"`
	CmdArgs   []string `json:"cmd_args"`
}

// normalized returns a copy with nil argument slices replaced by empty ones
// so that JSON serialization is canonical regardless of how the struct was
// populated.
func (m *PodKernelMetadata) normalized() *PodKernelMetadata {
	out := *m
	if out.BuildArgs == nil {
		out.BuildArgs = []string{}
	}
	if out.RunArgs == nil {
		out.RunArgs = []string{}
	}
	if out.CmdArgs == nil {
		out.CmdArgs = []string{}
	}
	return &out
}

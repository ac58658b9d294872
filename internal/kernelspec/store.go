package kernelspec

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Sentinel errors
var (
	ErrInvalidKernelID     = errors.New("invalid kernel id")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrNotFound            = errors.New("kernel not found")
	ErrCorruptSpec         = errors.New("corrupt kernelspec")
	ErrNotADirectory       = errors.New("kernelspec path is not a directory")
)

// RootFor returns the per-user kernelspec store path for the given GOOS
// value, following Jupyter's platform conventions.
func RootFor(goos string) (string, error) {
	switch goos {
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "jupyter", "kernels"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Jupyter", "kernels"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("%w: APPDATA not set", ErrUnsupportedPlatform)
		}
		return filepath.Join(appData, "jupyter", "kernels"), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

// Store reads and writes kernelspec dirs under a single root. Other tools
// install kernelspecs into the same root; the store only ever touches specs
// carrying podkernel metadata.
type Store struct {
	root   string
	logger *slog.Logger
}

func NewStore(root string, logger *slog.Logger) *Store {
	return &Store{root: root, logger: logger}
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) kernelDir(id string) string {
	return filepath.Join(s.root, id)
}

// SpecPath returns the path of the kernel.json for id.
func (s *Store) SpecPath(id string) string {
	return filepath.Join(s.root, id, SpecFilename)
}

// List enumerates the podkernel-managed kernelspecs in the store. Kernelspecs
// installed by other tools are silently skipped.
func (s *Store) List() (map[string]*KernelSpec, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*KernelSpec{}, nil
		}
		return nil, fmt.Errorf("read kernelspec store: %w", err)
	}

	specs := make(map[string]*KernelSpec)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		spec, err := s.readSpecFile(s.SpecPath(entry.Name()))
		if err != nil {
			s.logger.Debug("skipping unreadable kernelspec", "kernel_id", entry.Name(), "error", err)
			continue
		}
		if !spec.Managed() {
			continue
		}
		specs[entry.Name()] = spec
	}
	return specs, nil
}

// Read loads the managed kernelspec for id.
func (s *Store) Read(id string) (*KernelSpec, error) {
	info, err := os.Stat(s.kernelDir(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, id)
	}

	spec, err := s.readSpecFile(s.SpecPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s has no %s", ErrCorruptSpec, id, SpecFilename)
		}
		return nil, err
	}
	if !spec.Managed() {
		return nil, fmt.Errorf("%w: %s is not managed by podkernel", ErrNotFound, id)
	}
	return spec, nil
}

// InstalledAt returns the modification time of the kernel.json for id.
func (s *Store) InstalledAt(id string) (time.Time, error) {
	info, err := os.Stat(s.SpecPath(id))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Delete removes the kernelspec dir for id. When confirm is false only the
// intended action is reported; nothing is mutated.
func (s *Store) Delete(id string, confirm bool) error {
	specs, err := s.List()
	if err != nil {
		return err
	}
	if _, ok := specs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	dir := s.kernelDir(id)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, id)
	}

	log := s.logger.With("kernel_id", id, "kernelspec_dir", dir)
	if !confirm {
		log.Info("DRY RUN: pass --doit to remove the kernelspec")
		return nil
	}
	log.Info("removing kernelspec")
	return os.RemoveAll(dir)
}

// Install writes spec under id, resolving collisions by numeric suffixing:
// if id is taken, id_0, id_1, ... are tried until a free directory is found.
// Returns the ID actually used.
func (s *Store) Install(spec *KernelSpec, id string) (string, error) {
	if err := ValidateKernelID(id); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", err
	}

	realID := id
	for idx := 0; ; idx++ {
		err := os.Mkdir(s.kernelDir(realID), 0o755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", err
		}
		s.logger.Debug("kernel with same ID already exists, incrementing", "kernel_id", realID)
		realID = fmt.Sprintf("%s_%d", id, idx)
	}

	if err := s.writeSpecFile(realID, spec); err != nil {
		return "", err
	}
	s.logger.Info("installed new kernel", "kernel_id", realID)
	return realID, nil
}

// InstallDeterministic installs a kernelspec for meta under its derived
// content-hash ID. Installing the identical configuration twice is a no-op:
// the existing spec is detected by ID and returned unchanged. Returns the ID,
// the installed (or pre-existing) spec, and whether a new spec was written.
func (s *Store) InstallDeterministic(meta *PodKernelMetadata, displayName, language string) (string, *KernelSpec, bool, error) {
	id, err := DeriveKernelID(meta)
	if err != nil {
		return "", nil, false, err
	}
	log := s.logger.With("kernel_id", id)

	if existing, err := s.readSpecFile(s.SpecPath(id)); err == nil {
		// The ID is a content hash, so an existing spec at this ID holds the
		// identical configuration already.
		log.Info("identical kernel already installed",
			"existing_display_name", existing.DisplayName,
			"existing_language", existing.Language)
		return id, existing, false, nil
	}

	rawMeta, err := json.Marshal(meta.normalized())
	if err != nil {
		return "", nil, false, err
	}
	spec := &KernelSpec{
		Argv:          []string{MetadataNamespace, "start", id, ConnectionFilePlaceholder},
		DisplayName:   displayName,
		Language:      language,
		InterruptMode: InterruptModeMessage,
		Metadata: map[string]json.RawMessage{
			MetadataNamespace: rawMeta,
		},
	}

	if err := os.MkdirAll(s.kernelDir(id), 0o755); err != nil {
		return "", nil, false, err
	}
	if err := s.writeSpecFile(id, spec); err != nil {
		return "", nil, false, err
	}
	log.Info("new kernel installed", "display_name", displayName, "language", language)
	return id, spec, true, nil
}

func (s *Store) readSpecFile(path string) (*KernelSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec KernelSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSpec, err)
	}
	return &spec, nil
}

func (s *Store) writeSpecFile(id string, spec *KernelSpec) error {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.SpecPath(id), data, 0o644)
}

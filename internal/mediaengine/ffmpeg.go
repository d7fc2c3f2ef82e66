package mediaengine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/clipforge/video-pipeline/pkg/logger"
)

// FFmpegEngine runs commands against a local ffmpeg binary. A per-engine
// scratch directory plays the role of the engine's virtual filesystem, so the
// pipeline addresses files by bare name exactly as it would against a hosted
// engine.
type FFmpegEngine struct {
	binPath string
	workDir string
	ownsDir bool
	loaded  bool
	logger  logger.Logger
}

func NewFFmpegEngine(binPath, workDir string, log logger.Logger) *FFmpegEngine {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	if log == nil {
		log = logger.NopLogger
	}
	return &FFmpegEngine{
		binPath: binPath,
		workDir: workDir,
		logger:  log,
	}
}

func (e *FFmpegEngine) Load(ctx context.Context) error {
	if e.loaded {
		return nil
	}
	if _, err := exec.LookPath(e.binPath); err != nil {
		return fmt.Errorf("ffmpeg binary %q not available: %w", e.binPath, err)
	}
	if e.workDir == "" {
		dir, err := os.MkdirTemp("", "mediaengine_")
		if err != nil {
			return fmt.Errorf("failed to create engine workspace: %w", err)
		}
		e.workDir = dir
		e.ownsDir = true
	} else if err := os.MkdirAll(e.workDir, 0o755); err != nil {
		return fmt.Errorf("failed to create engine workspace: %w", err)
	}
	e.loaded = true
	e.logger.Infof("media engine loaded, workspace: %s", e.workDir)
	return nil
}

func (e *FFmpegEngine) WriteFile(ctx context.Context, name string, data []byte) error {
	if !e.loaded {
		return ErrNotLoaded
	}
	path, err := e.resolve(name)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (e *FFmpegEngine) Exec(ctx context.Context, args []string) (string, error) {
	if !e.loaded {
		return "", ErrNotLoaded
	}
	cmd := exec.CommandContext(ctx, e.binPath, args...)
	cmd.Dir = e.workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		// Probe-style invocations (-f null -) report into stderr and exit
		// non-zero on some containers; surface the output either way so the
		// caller can attempt parsing before giving up.
		return string(out), fmt.Errorf("ffmpeg %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

func (e *FFmpegEngine) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if !e.loaded {
		return nil, ErrNotLoaded
	}
	path, err := e.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrFileMissing, name)
	}
	return data, err
}

func (e *FFmpegEngine) DeleteFile(ctx context.Context, name string) error {
	if !e.loaded {
		return ErrNotLoaded
	}
	path, err := e.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (e *FFmpegEngine) Terminate(ctx context.Context) error {
	if !e.loaded {
		return nil
	}
	e.loaded = false
	if e.ownsDir {
		if err := os.RemoveAll(e.workDir); err != nil {
			return fmt.Errorf("failed to remove engine workspace: %w", err)
		}
		e.workDir = ""
	}
	return nil
}

// resolve maps a workspace-relative name to a real path and rejects names
// that escape the workspace.
func (e *FFmpegEngine) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid engine file name: %q", name)
	}
	return filepath.Join(e.workDir, name), nil
}

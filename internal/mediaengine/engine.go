package mediaengine

import (
	"context"
	"errors"
)

var (
	ErrNotLoaded   = errors.New("media engine not loaded")
	ErrFileMissing = errors.New("file not found in engine workspace")
)

// Engine is the encode/decode/probe collaborator the pipeline issues commands
// to. Commands are argument-vector style ffmpeg invocations; Exec returns the
// combined textual output so probe results can be parsed by the caller. The
// engine instance is shared and non-reentrant: callers must not run two
// commands against the same instance concurrently.
type Engine interface {
	// Load acquires the engine runtime. Idempotent.
	Load(ctx context.Context) error
	// WriteFile places bytes into the engine workspace under name.
	WriteFile(ctx context.Context, name string, data []byte) error
	// Exec runs one command and returns its combined output.
	Exec(ctx context.Context, args []string) (string, error)
	// ReadFile reads a produced file back out of the workspace.
	ReadFile(ctx context.Context, name string) ([]byte, error)
	// DeleteFile removes a workspace file. Removing a missing file is not an
	// error; cleanup paths call this unconditionally.
	DeleteFile(ctx context.Context, name string) error
	// Terminate releases the engine and its workspace.
	Terminate(ctx context.Context) error
}

package mediaengine

import (
	"context"
	"fmt"
	"sync"
)

// FakeEngine is a scriptable in-memory Engine for tests. Probe commands
// return ProbeOutput; every other command materializes OutputData under the
// command's trailing output name. Counters record engine traffic so tests can
// assert on cache hits and cleanup discipline.
type FakeEngine struct {
	mu    sync.Mutex
	files map[string][]byte

	ProbeOutput string
	ProbeErr    error
	OutputData  []byte
	ExecErr     error

	// ExecFunc, when set, replaces the default Exec behaviour entirely.
	ExecFunc func(args []string) (string, error)

	LoadErr error

	LoadCalls   int
	WriteCalls  int
	ExecCalls   int
	ReadCalls   int
	DeleteCalls int
	ExecHistory [][]string
}

func NewFakeEngine() *FakeEngine {
	return &FakeEngine{files: map[string][]byte{}}
}

func (f *FakeEngine) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoadCalls++
	return f.LoadErr
}

func (f *FakeEngine) WriteFile(ctx context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	f.files[name] = data
	return nil
}

func (f *FakeEngine) Exec(ctx context.Context, args []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ExecCalls++
	f.ExecHistory = append(f.ExecHistory, append([]string(nil), args...))

	if f.ExecFunc != nil {
		return f.ExecFunc(args)
	}
	if isProbe(args) {
		return f.ProbeOutput, f.ProbeErr
	}
	if f.ExecErr != nil {
		return "", f.ExecErr
	}
	if len(args) > 0 {
		out := args[len(args)-1]
		data := f.OutputData
		if data == nil {
			data = []byte("fake-output")
		}
		f.files[out] = data
	}
	return "", nil
}

func (f *FakeEngine) ReadFile(ctx context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadCalls++
	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileMissing, name)
	}
	return data, nil
}

func (f *FakeEngine) DeleteFile(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	delete(f.files, name)
	return nil
}

func (f *FakeEngine) Terminate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = map[string][]byte{}
	return nil
}

// FileCount reports how many files remain in the fake workspace. Cleanup
// tests assert this returns to the expected baseline.
func (f *FakeEngine) FileCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

func isProbe(args []string) bool {
	return len(args) > 0 && args[len(args)-1] == "-"
}

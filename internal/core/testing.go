package core

import "sync"

// SyncBuffer is a thread-safe io.Writer for testing log and report output.
type SyncBuffer struct {
	mu   sync.Mutex
	data []byte
}

func (w *SyncBuffer) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data = append(w.data, p...)
	return len(p), nil
}

// Sync satisfies zapcore.WriteSyncer.
func (w *SyncBuffer) Sync() error { return nil }

func (w *SyncBuffer) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.data)
}

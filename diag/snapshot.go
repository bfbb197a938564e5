// Package diag provides the operator-facing side of the runtime: a
// snapshot store for MITM forwarding message buffers, a Prometheus gauge
// for the holder count and a counter for MITM forwards, and a small debug
// HTTP server that exposes both. None of it sits on the kernel IPC fast path.
package diag

import (
	"fmt"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/spf13/afero"
)

// SnapshotStore persists a copy of the 256-byte message buffer backing a
// MITM-forwarded request, named by session and sequence number, so an
// operator or a test can inspect exactly what was forwarded (spec.md §8
// property 7: MITM forwarding must be byte-exact). Backed by afero.Fs the
// same way the teacher's sysio package swaps an OS filesystem for an
// in-memory one under test.
type SnapshotStore struct {
	mu   sync.Mutex
	fs   afero.Fs
	root string
	seq  map[string]int
}

// NewSnapshotStore returns a store rooted at root on fs. Pass
// afero.NewMemMapFs() for tests, afero.NewOsFs() for a real deployment.
func NewSnapshotStore(fs afero.Fs, root string) *SnapshotStore {
	return &SnapshotStore{fs: fs, root: root, seq: make(map[string]int)}
}

// Save writes data under a name derived from session and an
// auto-incrementing per-session sequence number, returning the path it
// was written to.
func (s *SnapshotStore) Save(session string, data []byte) (string, error) {
	s.mu.Lock()
	n := s.seq[session]
	s.seq[session] = n + 1
	s.mu.Unlock()

	if err := s.fs.MkdirAll(s.root, 0755); err != nil {
		return "", fmt.Errorf("diag: create snapshot dir: %w", err)
	}
	name := path.Join(s.root, fmt.Sprintf("%s.%04d.bin", session, n))
	if err := afero.WriteFile(s.fs, name, data, 0644); err != nil {
		return "", fmt.Errorf("diag: write snapshot: %w", err)
	}
	return name, nil
}

// List returns every snapshot path currently stored, sorted.
func (s *SnapshotStore) List() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, path.Join(s.root, e.Name()))
	}
	sort.Strings(names)
	return names, nil
}

// Read returns a previously saved snapshot's contents.
func (s *SnapshotStore) Read(name string) ([]byte, error) {
	return afero.ReadFile(s.fs, name)
}

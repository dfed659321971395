package editor

import (
	"path/filepath"
	"slices"
	"sync"
)

// archiveLocks serializes edits touching the same files. Entries are dropped
// once no edit holds or waits for them.
type archiveLocks struct {
	mu    sync.Mutex
	paths map[string]*pathLock
}

type pathLock struct {
	sync.Mutex
	refs int
}

func newArchiveLocks() *archiveLocks {
	return &archiveLocks{paths: make(map[string]*pathLock)}
}

// lock acquires every path, in sorted order, and returns the release func.
func (l *archiveLocks) lock(paths ...string) func() {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		keys = append(keys, filepath.Clean(p))
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*pathLock, 0, len(keys))
	for _, k := range keys {
		l.mu.Lock()
		pl, ok := l.paths[k]
		if !ok {
			pl = &pathLock{}
			l.paths[k] = pl
		}
		pl.refs++
		l.mu.Unlock()

		pl.Lock()
		held = append(held, pl)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			l.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.paths, keys[i])
			}
			l.mu.Unlock()
		}
	}
}

func (l *archiveLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.paths)
}

package storage

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Janitor removes archived fill outputs older than maxAge from a local store.
// Templates are never touched.
type Janitor struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration

	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func NewJanitor(store *LocalStore, maxAge, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{
		dir:      filepath.Join(store.Root(), archivesPrefix),
		maxAge:   maxAge,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *Janitor) Start() {
	j.ticker = time.NewTicker(j.interval)
	go func() {
		for {
			select {
			case <-j.done:
				return
			case now := <-j.ticker.C:
				j.Sweep(now)
			}
		}
	}()
	log.Printf("[storage] archive janitor started (max age %s)", j.maxAge)
}

func (j *Janitor) Stop() {
	j.once.Do(func() {
		if j.ticker != nil {
			j.ticker.Stop()
		}
		close(j.done)
		log.Println("[storage] archive janitor stopped")
	})
}

// Sweep deletes archive files last modified before now-maxAge, then any
// directories left empty. It returns the number of files removed.
func (j *Janitor) Sweep(now time.Time) int {
	if _, err := os.Stat(j.dir); os.IsNotExist(err) {
		return 0
	}

	removed := 0
	var dirs []string
	err := filepath.WalkDir(j.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != j.dir {
				dirs = append(dirs, path)
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if now.Sub(info.ModTime()) > j.maxAge {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		log.Printf("[storage] error during cleanup of %s: %v", j.dir, err)
	}

	// deepest first
	for i := len(dirs) - 1; i >= 0; i-- {
		os.Remove(dirs[i])
	}
	if removed > 0 {
		log.Printf("[storage] removed %d expired archives", removed)
	}
	return removed
}

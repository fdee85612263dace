// ABOUTME: Navigation history and one-shot path restoration
// ABOUTME: The last route is saved to session storage and consumed once on startup
package router

import (
	"errors"

	"github.com/harperreed/leadlab/storage"
)

const KeyRestorePath = "leadlab.restore_path"

// SessionKV is the session storage the restore path lives in.
type SessionKV interface {
	Set(key string, value []byte) error
	Take(key string) ([]byte, error)
}

// SaveRestorePath remembers where the user was.
func SaveRestorePath(kv SessionKV, path string) error {
	return kv.Set(KeyRestorePath, []byte(path))
}

// TakeRestorePath returns the saved path once, then forgets it.
func TakeRestorePath(kv SessionKV) (string, bool, error) {
	data, err := kv.Take(KeyRestorePath)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), len(data) > 0, nil
}

// History is a back stack of visited paths.
type History struct {
	stack []string
}

func NewHistory(start string) *History {
	return &History{stack: []string{start}}
}

func (h *History) Current() string {
	return h.stack[len(h.stack)-1]
}

func (h *History) Push(p string) {
	if p == h.Current() {
		return
	}
	h.stack = append(h.stack, p)
}

// Replace swaps the current entry, as redirects and restoration do.
func (h *History) Replace(p string) {
	h.stack[len(h.stack)-1] = p
}

// Back pops one entry and reports whether it moved.
func (h *History) Back() (string, bool) {
	if len(h.stack) < 2 {
		return h.Current(), false
	}
	h.stack = h.stack[:len(h.stack)-1]
	return h.Current(), true
}

// Reset drops all entries, used on logout.
func (h *History) Reset(p string) {
	h.stack = []string{p}
}

// Package passphrase holds the sync passphrase for the lifetime of a session.
//
// The passphrase is asked at most once per process and kept in memory only.
// Nothing in this package writes it to disk.
package passphrase

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrEmpty is returned when the user submits an empty passphrase.
	ErrEmpty = errors.New("passphrase must not be empty")

	// ErrNoPrompter is returned by GetOrPrompt when nothing is cached and the
	// cache was built without a Prompter.
	ErrNoPrompter = errors.New("no passphrase cached and no prompter configured")
)

// Cache memoizes a passphrase for the current session. The zero value is
// usable but cannot prompt. A Cache must not be copied after first use.
type Cache struct {
	mu       sync.Mutex
	value    string
	ok       bool
	prompter Prompter
}

// NewCache returns an empty cache that asks p when a passphrase is needed.
func NewCache(p Prompter) *Cache {
	return &Cache{prompter: p}
}

// GetOrPrompt returns the cached passphrase, or prompts once with message and
// caches the answer. Concurrent callers wait for the same prompt.
func (c *Cache) GetOrPrompt(message string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ok {
		return c.value, nil
	}
	if c.prompter == nil {
		return "", ErrNoPrompter
	}
	v, err := c.prompter.Prompt(message)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	if v == "" {
		return "", ErrEmpty
	}
	c.value, c.ok = v, true
	return v, nil
}

// Set stores v directly, bypassing the prompter. An empty v clears the cache.
func (c *Cache) Set(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value, c.ok = v, v != ""
}

// Clear forgets the cached passphrase.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value, c.ok = "", false
}

// Has reports whether a passphrase is cached.
func (c *Cache) Has() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ok
}

// Peek returns the cached passphrase without prompting.
func (c *Cache) Peek() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.ok
}

// Package conflict decides what happens when both the local connection book
// and the remote copy changed since the last sync.
//
// Resolution is whole-document: the user keeps local, takes remote, or
// aborts. There is no field-level merge.
package conflict

import (
	"context"
	"fmt"
	"strings"
)

// Resolution is the user's choice for a conflict. The zero value is Abort,
// which mutates nothing.
type Resolution int

const (
	Abort Resolution = iota
	Local
	Remote
)

func (r Resolution) String() string {
	switch r {
	case Local:
		return "local"
	case Remote:
		return "remote"
	case Abort:
		return "abort"
	default:
		return fmt.Sprintf("Resolution(%d)", int(r))
	}
}

// DiffContext is the number of unchanged lines shown around each change.
const DiffContext = 3

// MaxDiffLines caps how much of the diff interactive resolvers print.
const MaxDiffLines = 50

// Conflict carries both plaintext versions and their diff.
type Conflict struct {
	Profile string
	Local   []byte
	Remote  []byte
	Lines   []Line
}

// New builds a Conflict, computing the diff of local against remote.
func New(profile string, local, remote []byte) Conflict {
	return Conflict{
		Profile: profile,
		Local:   local,
		Remote:  remote,
		Lines:   Diff(local, remote),
	}
}

// HasChanges reports whether the two documents differ after canonicalization.
func (c Conflict) HasChanges() bool {
	return HasChanges(c.Lines)
}

// Preview returns at most limit lines of the unified diff and the number of
// lines left out.
func (c Conflict) Preview(limit int) ([]string, int) {
	u := Unified(c.Lines, DiffContext)
	if limit <= 0 || len(u) <= limit {
		return u, 0
	}
	return u[:limit], len(u) - limit
}

// Decide maps a user's answer to a Resolution. The second result is false
// when the answer is not recognised and the user should be asked again.
// A conflict whose documents are equal after canonicalization resolves to
// Remote without asking.
func Decide(c Conflict, input string) (Resolution, bool) {
	if !c.HasChanges() {
		return Remote, true
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "l", "local":
		return Local, true
	case "r", "remote":
		return Remote, true
	case "a", "abort":
		return Abort, true
	default:
		return Abort, false
	}
}

// Resolver obtains a Resolution for a conflict, usually from a human.
type Resolver interface {
	Resolve(ctx context.Context, c Conflict) (Resolution, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, c Conflict) (Resolution, error)

func (f ResolverFunc) Resolve(ctx context.Context, c Conflict) (Resolution, error) {
	return f(ctx, c)
}

// Fixed returns a Resolver that always answers r. Used for non-interactive
// runs such as "pull --prefer remote".
func Fixed(r Resolution) Resolver {
	return ResolverFunc(func(context.Context, Conflict) (Resolution, error) {
		return r, nil
	})
}

// ParseResolution parses "local", "remote" or "abort".
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return Local, nil
	case "remote":
		return Remote, nil
	case "abort":
		return Abort, nil
	}
	return Abort, fmt.Errorf("unknown resolution %q (want local, remote or abort)", s)
}

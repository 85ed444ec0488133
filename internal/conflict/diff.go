package conflict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op is the kind of a diff line.
type Op int

const (
	OpEqual Op = iota
	OpDelete
	OpInsert
)

// Line is one line of a line-level diff between local and remote.
type Line struct {
	Op   Op
	Text string
}

func (l Line) String() string {
	switch l.Op {
	case OpDelete:
		return "-" + l.Text
	case OpInsert:
		return "+" + l.Text
	default:
		return " " + l.Text
	}
}

// Canonical re-encodes a JSON document with sorted object keys and a
// four-space indent so that formatting and key order never show up as
// differences. Input that is not JSON is returned unchanged.
func Canonical(doc []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return doc
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return doc
	}
	return buf.Bytes()
}

// Diff computes a deterministic line diff of the canonical forms of local
// and remote.
func Diff(local, remote []byte) []Line {
	a := string(Canonical(local))
	b := string(Canonical(remote))

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var out []Line
	for _, d := range diffs {
		op := OpEqual
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		}
		for _, text := range splitLines(d.Text) {
			out = append(out, Line{Op: op, Text: text})
		}
	}
	return out
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// HasChanges reports whether any line differs.
func HasChanges(lines []Line) bool {
	for _, l := range lines {
		if l.Op != OpEqual {
			return true
		}
	}
	return false
}

// Unified renders lines as a unified diff with the given number of context
// lines around each change. Identical inputs render as nothing.
func Unified(lines []Line, context int) []string {
	if !HasChanges(lines) {
		return nil
	}

	keep := make([]bool, len(lines))
	for i, l := range lines {
		if l.Op == OpEqual {
			continue
		}
		for j := max(0, i-context); j <= min(len(lines)-1, i+context); j++ {
			keep[j] = true
		}
	}

	out := []string{"--- local", "+++ remote"}
	gap := true
	for i, l := range lines {
		if !keep[i] {
			gap = true
			continue
		}
		if gap {
			out = append(out, fmt.Sprintf("@@ line %d @@", i+1))
			gap = false
		}
		out = append(out, l.String())
	}
	return out
}

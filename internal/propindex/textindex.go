package propindex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ControlPrefix marks names that are IPC control properties, not stored
// properties; TextIndex entries under it are discarded at load.
const ControlPrefix = "ctl."

// Wildcard is the catch-all prefix, always ordered last.
const Wildcard = "*"

// prefixEntry is one (prefix, label) pairing in the routing list.
type prefixEntry struct {
	Prefix string
	Label  string
}

// TextIndex is the in-memory router built at startup from one or more
// text configuration files: a list of (prefix, label) entries ordered
// by decreasing prefix length, wildcard entries last. Multiple prefixes
// may name the same label; Route returns that label string, and it is
// the ContextRouter's job to map distinct label strings to a single
// shared PropArea.
type TextIndex struct {
	entries []prefixEntry
	labels  map[string]bool
}

// NewTextIndex returns an empty TextIndex.
func NewTextIndex() *TextIndex {
	return &TextIndex{labels: make(map[string]bool)}
}

// AddEntry inserts one routing rule, re-sorting the list by decreasing
// prefix length with the wildcard pinned last.
func (t *TextIndex) AddEntry(prefix, label string) error {
	if prefix == "" || label == "" {
		return fmt.Errorf("propindex: empty prefix or label")
	}
	if strings.HasPrefix(prefix, ControlPrefix) {
		return nil
	}

	t.entries = append(t.entries, prefixEntry{Prefix: prefix, Label: label})
	t.labels[label] = true

	sort.SliceStable(t.entries, func(i, j int) bool {
		wi, wj := t.entries[i].Prefix == Wildcard, t.entries[j].Prefix == Wildcard
		if wi != wj {
			return wj // non-wildcard before wildcard
		}
		return len(t.entries[i].Prefix) > len(t.entries[j].Prefix)
	})
	return nil
}

// Labels returns every distinct label registered so far, for the
// ContextRouter to allocate one PropArea slot per label.
func (t *TextIndex) Labels() []string {
	out := make([]string, 0, len(t.labels))
	for l := range t.labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Route returns the label the first matching entry assigns to name:
// exact/prefix entries are tried in decreasing-prefix-length order, the
// wildcard (if present) is the last resort.
func (t *TextIndex) Route(name string) (string, bool) {
	for _, e := range t.entries {
		if e.Prefix == Wildcard {
			return e.Label, true
		}
		if strings.HasPrefix(name, e.Prefix) {
			return e.Label, true
		}
	}
	return "", false
}

// LoadFile parses one text configuration file: lines are
// whitespace-separated, "<prefix> <label> [ignored...]"; '#' starts a
// comment; blank lines are skipped. Entries under ControlPrefix are
// discarded, matching the load-time IPC control-property exclusion.
func (t *TextIndex) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.LoadReader(f)
}

// LoadReader is LoadFile's testable core.
func (t *TextIndex) LoadReader(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if err := t.AddEntry(fields[0], fields[1]); err != nil {
			return err
		}
	}
	return scanner.Err()
}

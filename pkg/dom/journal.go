package dom

import (
	"fmt"
	"strings"
)

// Op names a renderer primitive
type Op string

const (
	OpCreateElement Op = "createElement"
	OpCreateText    Op = "createText"
	OpCreateComment Op = "createComment"
	OpSetAttribute  Op = "setAttribute"
	OpSetText       Op = "setText"
	OpInsert        Op = "insert"
	OpRemove        Op = "remove"
)

// Entry is one recorded primitive call
type Entry struct {
	Op     Op
	Target string
	Detail string
}

func (e Entry) String() string {
	s := string(e.Op)
	if e.Target != "" {
		s += " " + e.Target
	}
	if e.Detail != "" {
		s += " " + e.Detail
	}
	return s
}

// Journal records renderer calls in order
type Journal struct {
	entries []Entry
}

func (j *Journal) record(op Op, target, detail string) {
	j.entries = append(j.entries, Entry{Op: op, Target: target, Detail: detail})
}

// Entries returns the recorded calls
func (j *Journal) Entries() []Entry {
	return j.entries
}

// Mutations returns the number of recorded calls
func (j *Journal) Mutations() int {
	return len(j.entries)
}

// Count returns the number of calls to op
func (j *Journal) Count(op Op) int {
	n := 0
	for _, e := range j.entries {
		if e.Op == op {
			n++
		}
	}
	return n
}

// Counts returns the number of calls per op
func (j *Journal) Counts() map[Op]int {
	counts := make(map[Op]int)
	for _, e := range j.entries {
		counts[e.Op]++
	}
	return counts
}

// Reset forgets all recorded calls
func (j *Journal) Reset() {
	j.entries = j.entries[:0]
}

func (j *Journal) String() string {
	var b strings.Builder
	for i, e := range j.entries {
		fmt.Fprintf(&b, "%3d %s\n", i+1, e)
	}
	return b.String()
}

// Package pprof profiles the analyzer itself while it digests large traces.
// The CPU profile covers the whole command; the other profiles are
// snapshotted when the command ends.
package pprof

import (
	"fmt"
	"strings"
)

// Profile names a runtime profile.
type Profile string

const (
	CPU       Profile = "cpu"
	Heap      Profile = "heap"
	Goroutine Profile = "goroutine"
	Block     Profile = "block"
	Mutex     Profile = "mutex"
	Allocs    Profile = "allocs"
)

var known = map[Profile]bool{
	CPU: true, Heap: true, Goroutine: true, Block: true, Mutex: true, Allocs: true,
}

// DefaultProfiles is what --pprof collects without --pprof-profiles.
func DefaultProfiles() []Profile {
	return []Profile{CPU, Heap}
}

// ParseProfiles parses a comma separated list such as "cpu,heap".
// Duplicates are dropped and order is kept.
func ParseProfiles(s string) ([]Profile, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultProfiles(), nil
	}

	var out []Profile
	seen := make(map[Profile]bool)
	for _, part := range strings.Split(s, ",") {
		p := Profile(strings.ToLower(strings.TrimSpace(part)))
		if !known[p] {
			return nil, fmt.Errorf("unknown profile type: %q", part)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func contains(profiles []Profile, p Profile) bool {
	for _, q := range profiles {
		if q == p {
			return true
		}
	}
	return false
}

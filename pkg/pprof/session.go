package pprof

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync"
)

// Session profiles one command. Files are named <dir>/<label>-<profile>.pprof
// so runs of different commands can share a directory.
type Session struct {
	dir      string
	label    string
	profiles []Profile

	mu      sync.Mutex
	cpuFile *os.File
	ended   bool
}

// Begin creates dir, starts the CPU profile if requested and turns on
// block and mutex sampling for those profiles.
func Begin(dir, label string, profiles []Profile) (*Session, error) {
	if dir == "" {
		return nil, fmt.Errorf("profile directory is required")
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("at least one profile type is required")
	}
	if label == "" {
		label = "leak-analysis"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	s := &Session{dir: dir, label: label, profiles: profiles}
	if contains(profiles, CPU) {
		f, err := os.Create(s.path(CPU))
		if err != nil {
			return nil, fmt.Errorf("failed to create cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to start cpu profile: %w", err)
		}
		s.cpuFile = f
	}
	if contains(profiles, Block) {
		runtime.SetBlockProfileRate(1)
	}
	if contains(profiles, Mutex) {
		runtime.SetMutexProfileFraction(1)
	}
	return s, nil
}

// Dir is where profiles are written.
func (s *Session) Dir() string {
	return s.dir
}

// End stops the CPU profile, writes the other requested profiles and
// returns every file written. Later calls do nothing.
func (s *Session) End() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return nil, nil
	}
	s.ended = true

	var written []string
	var firstErr error
	keep := func(path string, err error) {
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		written = append(written, path)
	}

	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		path := s.cpuFile.Name()
		if err := s.cpuFile.Close(); err != nil {
			keep("", fmt.Errorf("failed to close cpu profile: %w", err))
		} else {
			keep(path, nil)
		}
	}

	for _, p := range s.profiles {
		if p == CPU {
			continue
		}
		if p == Heap || p == Allocs {
			runtime.GC()
		}
		keep(s.write(p))
	}

	if contains(s.profiles, Block) {
		runtime.SetBlockProfileRate(0)
	}
	if contains(s.profiles, Mutex) {
		runtime.SetMutexProfileFraction(0)
	}
	return written, firstErr
}

func (s *Session) write(p Profile) (string, error) {
	profile := pprof.Lookup(string(p))
	if profile == nil {
		return "", fmt.Errorf("profile %s not available", p)
	}

	path := s.path(p)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s profile: %w", p, err)
	}
	defer f.Close()

	if err := profile.WriteTo(f, 0); err != nil {
		return "", fmt.Errorf("failed to write %s profile: %w", p, err)
	}
	return path, nil
}

func (s *Session) path(p Profile) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s.pprof", s.label, p))
}

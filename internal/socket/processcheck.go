package socket

import (
	"strings"

	"github.com/mitchellh/go-ps"
)

var _ ProcessChecker = (*DefaultProcessChecker)(nil)

// ProcessChecker reports whether a process is running. It answers both
// "is projsetd up" for Connect and "is an external runtime present" for
// the platform's runtime-presence feature tags.
type ProcessChecker interface {
	IsRunning(name string) bool
}

// DefaultProcessChecker looks through the host process table.
type DefaultProcessChecker struct {
	// list is swapped in tests.
	list func() ([]ps.Process, error)
}

// IsRunning reports whether an executable whose name starts with name
// (case-insensitive, ignoring a trailing ".exe") is running.
func (pc *DefaultProcessChecker) IsRunning(name string) bool {
	if name == "" {
		return false
	}
	list := ps.Processes
	if pc != nil && pc.list != nil {
		list = pc.list
	}
	procs, err := list()
	if err != nil {
		return false
	}
	name = strings.ToLower(name)
	for _, proc := range procs {
		exe := strings.TrimSuffix(strings.ToLower(proc.Executable()), ".exe")
		if strings.HasPrefix(exe, name) {
			return true
		}
	}
	return false
}

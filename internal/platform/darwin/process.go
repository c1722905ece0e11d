//go:build darwin

package darwin

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// ProcessManager implements platform.ProcessManager with pgrep and open.
type ProcessManager struct{}

func NewProcessManager() *ProcessManager {
	return &ProcessManager{}
}

// FindProcesses returns PIDs whose process name matches exe exactly,
// ignoring case and a trailing ".app".
func (p *ProcessManager) FindProcesses(exe string) ([]int, error) {
	name := strings.TrimSuffix(exe, ".app")
	out, err := exec.Command("pgrep", "-i", "-x", name).Output()
	if err != nil {
		// pgrep exits 1 when nothing matched
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("pgrep: %w", err)
	}
	return parsePIDs(string(out)), nil
}

// Terminate sends SIGTERM to pid.
func (p *ProcessManager) Terminate(pid int) error {
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill %d: %w", pid, err)
	}
	return nil
}

// Launch opens the application by name.
func (p *ProcessManager) Launch(app string) error {
	if out, err := exec.Command("open", "-a", app).CombinedOutput(); err != nil {
		return fmt.Errorf("open -a %s: %w: %s", app, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func parsePIDs(s string) []int {
	var pids []int
	for _, line := range strings.Fields(s) {
		if pid, err := strconv.Atoi(line); err == nil {
			pids = append(pids, pid)
		}
	}
	return pids
}

package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
)

// ExecSpawner runs commands through the shell, detached from the window
// manager's session so they outlive a restart.
type ExecSpawner struct {
	Shell  string
	logger *slog.Logger
}

// NewExecSpawner returns a spawner that runs commands with /bin/sh.
func NewExecSpawner(logger *slog.Logger) *ExecSpawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecSpawner{Shell: "/bin/sh", logger: logger}
}

// Spawn starts command and reaps it in the background.
func (s *ExecSpawner) Spawn(command string) error {
	if command == "" {
		return fmt.Errorf("empty command")
	}
	cmd := exec.Command(s.Shell, "-c", command)
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %q: %w", command, err)
	}
	s.logger.Debug("spawned", "command", command, "pid", cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			s.logger.Debug("spawned command exited", "command", command, "error", err)
		}
	}()
	return nil
}

// Reexec replaces the running process with a fresh copy of the same binary
// and arguments. It only returns on failure.
func Reexec() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to find executable: %w", err)
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}

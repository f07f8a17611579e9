package process

import (
	"os"
	"os/exec"

	"github.com/kbukum/serverkit/errors"
	"github.com/kbukum/serverkit/logger"
)

// Spawn starts cmd and returns its pid without waiting for it. The child is
// reaped in the background; its exit status is discarded.
func Spawn(cmd Command) (int, error) {
	if cmd.Binary == "" {
		return 0, errors.SpawnFailure("", exec.ErrNotFound)
	}

	c := exec.Command(cmd.Binary, cmd.Args...) //nolint:gosec // the binary comes from operator configuration
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	c.Stdin = nil
	c.Stdout = cmd.Stdout
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	c.Stderr = cmd.Stderr
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}

	if err := c.Start(); err != nil {
		return 0, errors.SpawnFailure(cmd.Binary, err)
	}
	pid := c.Process.Pid
	logger.WithComponent("process").Debug("pre-start program launched", logger.Fields("bin", cmd.Binary, "pid", pid))

	go func() { _ = c.Wait() }()
	return pid, nil
}

// mergeEnv merges additional env vars with the current environment.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil // inherit parent env
	}
	env := os.Environ()
	return append(env, extra...)
}

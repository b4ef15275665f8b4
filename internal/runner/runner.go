// Package runner abstracts external command execution so the build
// and checkout orchestration can be exercised in tests without docker
// or git installed.
package runner

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes external commands.
type Runner interface {
	// Run executes a command, streaming its output to the console.
	Run(name string, args ...string) error
	// Output executes a command and returns its trimmed stdout.
	Output(name string, args ...string) (string, error)
}

// Exec is the production Runner. Dir, when set, is the working
// directory for every command.
type Exec struct {
	Dir string
}

func (e *Exec) Run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = e.Dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

func (e *Exec) Output(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = e.Dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

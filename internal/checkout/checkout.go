// Package checkout places the versioned submodules at the right refs
// for a build: a release tag when one is requested and valid, a
// branch head otherwise. Per-submodule failures are warnings, never
// fatal, so a missing ref leaves that submodule at its current HEAD.
package checkout

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/soultaco83/jellyfin-packaging/internal/log"
	"github.com/soultaco83/jellyfin-packaging/internal/runner"
)

const updateRetries = 3

// Submodules that must both carry a tag for it to be considered a
// valid release target.
var tagBearers = []string{"jellyfin-server", "jellyfin-web"}

type Checkout struct {
	runner runner.Runner
	root   string
}

func New(r runner.Runner, root string) *Checkout {
	return &Checkout{runner: r, root: root}
}

// Run updates all submodules and checks each one out at the head
// matching the target release. Returns the ref actually used, which
// falls back to "master" when the requested tag is not valid.
func (c *Checkout) Run(target string) (string, error) {
	log.Info("Preparing targets", "release", target)

	if err := c.updateSubmodules(); err != nil {
		return "", err
	}

	submodules, err := c.Submodules()
	if err != nil {
		return "", err
	}

	target = c.validateTarget(target)

	for _, submodule := range submodules {
		head := targetHead(submodule, target)
		if err := c.checkoutHead(submodule, head); err != nil {
			log.Warn("Could not checkout submodule, leaving at current HEAD",
				"submodule", submodule, "head", head, "error", err)
			continue
		}
		log.Info("Submodule checked out", "submodule", submodule, "head", head)
	}

	log.Info("Submodules checked out", "release", target)
	return target, nil
}

// updateSubmodules initializes and updates the submodule tree,
// retrying transient failures a few times the way flaky clones need.
func (c *Checkout) updateSubmodules() error {
	var err error
	for i := 0; i < updateRetries; i++ {
		err = c.runner.Run("git", "-C", c.root, "submodule", "update", "--init", "--recursive")
		if err == nil {
			return nil
		}
		log.Warn("Submodule update failed, retrying", "attempt", i+1, "error", err)
	}
	return fmt.Errorf("updating submodules: %w", err)
}

// Submodules lists the submodule paths configured in .gitmodules.
func (c *Checkout) Submodules() ([]string, error) {
	out, err := c.runner.Output("git", "-C", c.root, "config", "--file", ".gitmodules",
		"--get-regexp", `submodule\..*\.path`)
	if err != nil {
		return nil, fmt.Errorf("listing submodules: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 {
			paths = append(paths, fields[1])
		}
	}
	return paths, nil
}

// validateTarget falls back to "master" when the requested tag does
// not exist in every tag-bearing submodule. "master" and "test" are
// branches and skip validation.
func (c *Checkout) validateTarget(target string) string {
	if target == "master" || target == "test" {
		return target
	}

	for _, submodule := range tagBearers {
		out, err := c.runner.Output("git", "-C", filepath.Join(c.root, submodule),
			"tag", "-l", target)
		if err != nil || strings.TrimSpace(out) == "" {
			log.Warn("Tag is not valid for all submodules, using master instead",
				"tag", target, "submodule", submodule)
			return "master"
		}
	}
	return target
}

// targetHead picks the ref a submodule should sit at for a release.
// The Windows server tracks master regardless of release tags.
func targetHead(submodule, target string) string {
	switch {
	case target == "master":
		return "origin/master"
	case target == "test":
		return "origin/test"
	case submodule == "jellyfin-server-windows":
		return "origin/master"
	default:
		return "refs/tags/" + target
	}
}

func (c *Checkout) checkoutHead(submodule, head string) error {
	dir := filepath.Join(c.root, submodule)
	if err := c.runner.Run("git", "-C", dir, "checkout", head); err != nil {
		return err
	}
	return c.runner.Run("git", "-C", dir, "reset", "--hard", head)
}

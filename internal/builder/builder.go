// Package builder assembles and runs the docker build, tag, push and
// manifest commands for multi-architecture image releases. All
// external invocations go through a Runner so the orchestration is
// testable without docker.
package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/soultaco83/jellyfin-packaging/internal/abiver"
	"github.com/soultaco83/jellyfin-packaging/internal/buildcfg"
	"github.com/soultaco83/jellyfin-packaging/internal/log"
	"github.com/soultaco83/jellyfin-packaging/internal/runner"
)

const osVersion = "bookworm"

// Options tweak a docker build run.
type Options struct {
	// Arch restricts the build to one architecture; empty builds all.
	Arch string
	// Local skips registry tagging, pushes and manifests.
	Local bool
	// Debug builds the .NET projects in Debug configuration.
	Debug bool
}

type Builder struct {
	cfg    *buildcfg.Config
	runner runner.Runner
	root   string

	// Overridable for tests.
	now    func() time.Time
	getenv func(string) string
}

func New(cfg *buildcfg.Config, r runner.Runner, root string) *Builder {
	return &Builder{
		cfg:    cfg,
		runner: r,
		root:   root,
		now:    time.Now,
		getenv: os.Getenv,
	}
}

// BuildDocker builds images for one or all architectures, then pushes
// images and multi-arch manifests to both registries unless the build
// is local.
func (b *Builder) BuildDocker(version string, opts Options) error {
	bt, err := b.cfg.Type("docker")
	if err != nil {
		return err
	}

	architectures := bt.ArchNames()
	if opts.Arch != "" {
		if _, err := bt.Arch(opts.Arch); err != nil {
			return err
		}
		architectures = []string{opts.Arch}
		log.Info("Building single architecture", "arch", opts.Arch)
	}

	kind, version := Classify(version)
	log.Info("Build type determined", "kind", kind.String(), "version", version)

	date := b.now().Format("20060102-150405")
	frameworks := b.FrameworkVersions()

	var imagesHub, imagesGHCR []string
	for _, arch := range architectures {
		log.Info("Building Docker image", "arch", arch)

		archVars, err := bt.Arch(arch)
		if err != nil {
			return err
		}

		imagename := fmt.Sprintf("%s:%s-%s", bt.ImageName, version, arch)
		if kind == Stable || kind == Preview {
			imagename = fmt.Sprintf("%s.%s", imagename, date)
		}

		// Reset any registered qemu static handlers before each build.
		if err := b.runner.Run("docker", "run", "--rm", "--privileged",
			"multiarch/qemu-user-static:register", "--reset"); err != nil {
			log.Warn("qemu reset failed", "error", err)
		}

		args := []string{"buildx", "build", "--progress=plain", "--no-cache"}
		for _, kv := range buildArgs(archVars, frameworks, version, opts.Debug) {
			args = append(args, "--build-arg", kv)
		}
		args = append(args,
			"--file", filepath.Join(b.root, bt.Dockerfile),
			"--tag", imagename,
			b.root,
		)

		if err := b.runner.Run("docker", args...); err != nil {
			return fmt.Errorf("building image for %s: %w", arch, err)
		}
		imagesHub = append(imagesHub, imagename)

		if !opts.Local {
			ghcrName := "ghcr.io/" + imagename
			if err := b.runner.Run("docker", "image", "tag", imagename, ghcrName); err != nil {
				return fmt.Errorf("tagging %s: %w", ghcrName, err)
			}
			imagesGHCR = append(imagesGHCR, ghcrName)
		}
	}

	if opts.Local {
		return nil
	}

	if b.getenv("DOCKER_USERNAME") == "" || b.getenv("DOCKER_TOKEN") == "" {
		log.Warn("No DOCKER_USERNAME or DOCKER_TOKEN in environment; skipping manifest build and push")
		return nil
	}

	if err := b.publish("docker.io", b.getenv("DOCKER_USERNAME"), b.getenv("DOCKER_TOKEN"), "", imagesHub, bt, kind, version, date); err != nil {
		return err
	}
	return b.publish("ghcr.io", b.getenv("GHCR_USERNAME"), b.getenv("GHCR_TOKEN"), "ghcr.io", imagesGHCR, bt, kind, version, date)
}

// publish pushes the per-arch images, then creates and pushes the
// combined manifests for one registry.
func (b *Builder) publish(server, user, token, loginHost string, images []string, bt *buildcfg.BuildType, kind Kind, version, date string) error {
	loginArgs := []string{"login", "-u", user, "-p", token}
	if loginHost != "" {
		loginArgs = append(loginArgs, loginHost)
	}
	if err := b.runner.Run("docker", loginArgs...); err != nil {
		return fmt.Errorf("logging in to %s: %w", server, err)
	}
	defer b.runner.Run("docker", "logout")

	for _, image := range images {
		log.Info("Pushing image", "image", image, "registry", server)
		if err := b.runner.Run("docker", "push", image); err != nil {
			return fmt.Errorf("pushing %s: %w", image, err)
		}
	}

	for _, tag := range ManifestTags(kind, version, date) {
		manifest := fmt.Sprintf("%s/%s:%s", server, bt.ImageName, tag)
		log.Info("Building manifest", "manifest", manifest)

		args := append([]string{"manifest", "create", manifest}, images...)
		if err := b.runner.Run("docker", args...); err != nil {
			return fmt.Errorf("creating manifest %s: %w", manifest, err)
		}
		if err := b.runner.Run("docker", "manifest", "push", "--purge", manifest); err != nil {
			return fmt.Errorf("pushing manifest %s: %w", manifest, err)
		}
	}

	return nil
}

// ManifestTags returns the manifest tag fan-out for a release kind:
// stable releases get dated, X.Y.Z, X.Y, X and latest tags; previews
// get dated, X.Y.Z and preview; everything else is the version plus
// unstable.
func ManifestTags(kind Kind, version, date string) []string {
	var tags []string
	if kind == Stable || kind == Preview {
		tags = append(tags, version+"."+date)
	}
	tags = append(tags, version)

	switch kind {
	case Stable:
		parts := strings.Split(version, ".")
		if len(parts) >= 2 {
			tags = append(tags, parts[0]+"."+parts[1])
		}
		if len(parts) >= 1 {
			tags = append(tags, parts[0])
		}
		tags = append(tags, "latest")
	case Preview:
		tags = append(tags, "preview")
	default:
		tags = append(tags, "unstable")
	}

	return tags
}

// buildArgs assembles the --build-arg values for one architecture.
func buildArgs(archVars, frameworks map[string]string, version string, debug bool) []string {
	keys := make([]string, 0, len(archVars))
	for k := range archVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var args []string
	for _, k := range keys {
		args = append(args, fmt.Sprintf("%s=%s", k, archVars[k]))
	}

	args = append(args, "JELLYFIN_VERSION="+version)
	configuration := "Release"
	if debug {
		configuration = "Debug"
	}
	args = append(args, "CONFIG="+configuration)
	args = append(args, "OS_VERSION="+osVersion)

	fkeys := make([]string, 0, len(frameworks))
	for k := range frameworks {
		fkeys = append(fkeys, k)
	}
	sort.Strings(fkeys)
	for _, k := range fkeys {
		args = append(args, fmt.Sprintf("%s=%s", k, frameworks[k]))
	}

	return args
}

// FrameworkVersions determines framework build args from submodule
// commit ancestry: for each configured build arg, the highest pinned
// version whose commit is an ancestor of the submodule HEAD wins.
func (b *Builder) FrameworkVersions() map[string]string {
	result := make(map[string]string)

	for submodule, buildArgs := range b.cfg.Frameworks {
		for arg, pins := range buildArgs {
			commits := make([]string, 0, len(pins))
			for commit := range pins {
				commits = append(commits, commit)
			}
			// Walk pins in ascending version order so the newest
			// reachable pin wins.
			sort.Slice(commits, func(i, j int) bool {
				return abiver.Less(pins[commits[i]], pins[commits[j]])
			})

			for _, commit := range commits {
				if b.isAncestor(submodule, commit) {
					result[arg] = pins[commit]
				}
			}
		}
	}

	for k, v := range result {
		log.Info("Determined framework version", "arg", k, "version", v)
	}
	return result
}

func (b *Builder) isAncestor(submodule, commit string) bool {
	err := b.runner.Run("git", "-C", filepath.Join(b.root, submodule),
		"merge-base", "--is-ancestor", commit, "HEAD")
	return err == nil
}

package buildcfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `
docker:
  build_function: build_docker
  dockerfile: docker/Dockerfile
  imagename: soultaco83/jellyfin
  archmaps:
    amd64:
      PACKAGE_ARCH: amd64
      DOTNET_ARCH: x64
      QEMU_ARCH: x86_64
      IMAGE_ARCH: amd64
      TARGET_ARCH: linux/amd64
    arm64:
      PACKAGE_ARCH: arm64
      DOTNET_ARCH: arm64
      QEMU_ARCH: aarch64
      IMAGE_ARCH: arm64v8
      TARGET_ARCH: linux/arm64

nuget:
  build_function: build_nuget

frameworks:
  jellyfin-server:
    DOTNET_VERSION:
      abc123: "8.0"
      def456: "9.0"
`

func load(t *testing.T) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.yaml")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return cfg
}

func TestLoad(t *testing.T) {
	cfg := load(t)

	bt, err := cfg.Type("docker")
	if err != nil {
		t.Fatalf("Type failed: %v", err)
	}
	if bt.ImageName != "soultaco83/jellyfin" {
		t.Errorf("unexpected imagename %s", bt.ImageName)
	}
	if bt.Dockerfile != "docker/Dockerfile" {
		t.Errorf("unexpected dockerfile %s", bt.Dockerfile)
	}

	vars, err := bt.Arch("arm64")
	if err != nil {
		t.Fatalf("Arch failed: %v", err)
	}
	if vars["QEMU_ARCH"] != "aarch64" {
		t.Errorf("unexpected QEMU_ARCH %s", vars["QEMU_ARCH"])
	}

	if cfg.Frameworks["jellyfin-server"]["DOTNET_VERSION"]["def456"] != "9.0" {
		t.Error("frameworks map not parsed")
	}
}

func TestUnknownType(t *testing.T) {
	cfg := load(t)
	_, err := cfg.Type("windows")
	if err == nil {
		t.Fatal("expected error for unknown build type")
	}
	if !strings.Contains(err.Error(), "docker") || !strings.Contains(err.Error(), "nuget") {
		t.Errorf("expected error to list valid types, got %v", err)
	}
}

func TestUnknownArch(t *testing.T) {
	cfg := load(t)
	bt, err := cfg.Type("docker")
	if err != nil {
		t.Fatal(err)
	}
	_, err = bt.Arch("riscv64")
	if err == nil {
		t.Fatal("expected error for unknown arch")
	}
	if !strings.Contains(err.Error(), "amd64, arm64") {
		t.Errorf("expected error to list valid architectures, got %v", err)
	}
}

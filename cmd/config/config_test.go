package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfigDefault(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")
	if AppConfig.Node.Network != "mainnet" {
		t.Fatalf("unexpected node network: %s", AppConfig.Node.Network)
	}
	if AppConfig.Index.Mode != "auto" {
		t.Fatalf("unexpected index mode: %s", AppConfig.Index.Mode)
	}
}

func TestLoadConfigOverride(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("regtest")
	if AppConfig.Node.Network != "regtest" {
		t.Fatalf("expected network regtest, got %s", AppConfig.Node.Network)
	}
	if AppConfig.Index.Mode != "blk_only" {
		t.Fatalf("expected index mode blk_only override, got %s", AppConfig.Index.Mode)
	}
	// Unmerged fields keep the default's value.
	if AppConfig.Index.PriceScale != 100_000_000 {
		t.Fatalf("expected price_scale to keep its default, got %d", AppConfig.Index.PriceScale)
	}
}

func TestLoadConfigFromSandboxDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data := []byte("node:\n  network: signet\nindex:\n  mode: rpc_only\n")
	if err := os.WriteFile(filepath.Join(dir, "config", "default.yaml"), data, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")

	if AppConfig.Node.Network != "signet" {
		t.Fatalf("expected network signet, got %s", AppConfig.Node.Network)
	}
	if AppConfig.Index.Mode != "rpc_only" {
		t.Fatalf("expected index mode rpc_only, got %s", AppConfig.Index.Mode)
	}
}

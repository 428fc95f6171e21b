package brand

import (
	"os"
	"testing"
)

func TestGet(t *testing.T) {
	b := Get()
	if b.Name == "" {
		t.Error("Brand name should not be empty")
	}
	// Version is a global variable, not in the struct
	if Version == "" {
		t.Error("Global Version should be initialized (to dev default)")
	}
	if Name == "" {
		t.Error("Global Name should be initialized")
	}
}

func TestGetConfigDir(t *testing.T) {
	cleanEnv := func() {
		os.Unsetenv(ConfigEnvPrefix + "_PREFIX")
		os.Unsetenv(ConfigEnvPrefix + "_CONFIG_DIR")
	}
	cleanEnv()
	defer cleanEnv()

	if GetConfigDir() != DefaultConfigDir {
		t.Errorf("Expected default config dir %s, got %s", DefaultConfigDir, GetConfigDir())
	}

	os.Setenv(ConfigEnvPrefix+"_PREFIX", "/tmp/floe")
	if GetConfigDir() != "/tmp/floe/config" {
		t.Errorf("Expected prefix config dir, got %s", GetConfigDir())
	}

	// Direct override has highest priority
	os.Setenv(ConfigEnvPrefix+"_CONFIG_DIR", "/custom/config")
	if GetConfigDir() != "/custom/config" {
		t.Errorf("Expected custom config dir, got %s", GetConfigDir())
	}
}

func TestDefaultConfigPath(t *testing.T) {
	os.Unsetenv(ConfigEnvPrefix + "_PREFIX")
	os.Unsetenv(ConfigEnvPrefix + "_CONFIG_DIR")
	if DefaultConfigPath() != DefaultConfigDir+"/"+ConfigFileName {
		t.Errorf("unexpected default config path %s", DefaultConfigPath())
	}
}

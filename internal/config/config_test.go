package config

import (
	"os"
	"path/filepath"
	"testing"
)

// clearEnv 清空 PRICEBOOK_* 变量，测试结束后恢复
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PRICEBOOK_PORT", "PRICEBOOK_DATA_DIR", "PRICEBOOK_DB_FILE",
		"PRICEBOOK_MM_PER_INCH", "PRICEBOOK_QUOTE_TEMPLATE_PATH",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoadConfigFrom_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, info, err := LoadConfigFrom(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if info.PortSpecified {
		t.Fatalf("port should not be marked as specified")
	}
	def := DefaultConfig()
	if cfg.Server.Port != def.Server.Port || cfg.Import.HeaderSheet != "Header" || cfg.Units.MillimetersPerInch != 25 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigFrom_TomlAndEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := []byte(`
[server]
port = 8088

[import]
header_sheet = "Index"

[units]
mm_per_inch = 25.4
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PRICEBOOK_DB_FILE=fromenv.db\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("PRICEBOOK_DATA_DIR", dir)

	cfg, info, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if !info.PortSpecified || cfg.Server.Port != 8088 {
		t.Fatalf("port = %d, specified = %v", cfg.Server.Port, info.PortSpecified)
	}
	if cfg.Import.HeaderSheet != "Index" || cfg.Import.HeaderSearchWindow != 20 {
		t.Fatalf("import = %+v", cfg.Import)
	}
	if cfg.Units.MillimetersPerInch != 25.4 {
		t.Fatalf("mm per inch = %v", cfg.Units.MillimetersPerInch)
	}
	if got := DBPath(cfg); got != filepath.Join(dir, "fromenv.db") {
		t.Fatalf("DBPath = %s", got)
	}
}

func TestLoadConfigFrom_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRICEBOOK_MM_PER_INCH", "-3")

	if _, _, err := LoadConfigFrom(filepath.Join(t.TempDir(), "config.toml")); err == nil {
		t.Fatalf("negative mm per inch should be rejected")
	}
}

func TestSaveConfigAndEnsureDataDir(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Data.DataDir = filepath.Join(dir, "data")
	cfg.Server.Port = 9001

	path := filepath.Join(dir, "config.toml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, _, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if loaded.Server.Port != 9001 || loaded.Data.DataDir != cfg.Data.DataDir {
		t.Fatalf("loaded = %+v", loaded)
	}

	dataDir, err := EnsureDataDir(loaded)
	if err != nil {
		t.Fatalf("EnsureDataDir: %v", err)
	}
	for _, sub := range []string{"uploads", "exports"} {
		if st, err := os.Stat(filepath.Join(dataDir, sub)); err != nil || !st.IsDir() {
			t.Fatalf("%s not created: %v", sub, err)
		}
	}
}

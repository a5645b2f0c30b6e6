package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv(t *testing.T) {
	unsetEnv(t, "WALLET_URL")
	unsetEnv(t, "TELEGRAM_CHAT_ID")
	unsetEnv(t, "TELEGRAM_BOT_TOKEN")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "" +
		"# comment\n" +
		"WALLET_URL=https://hypurrscan.io/address/0xabc\n" +
		"TELEGRAM_CHAT_ID=\"-100123\"\n" +
		"TELEGRAM_BOT_TOKEN='123:abc'\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("WALLET_URL"); got != "https://hypurrscan.io/address/0xabc" {
		t.Fatalf("unexpected WALLET_URL %q", got)
	}
	if got := os.Getenv("TELEGRAM_CHAT_ID"); got != "-100123" {
		t.Fatalf("TELEGRAM_CHAT_ID expected -100123, got %q", got)
	}
	if got := os.Getenv("TELEGRAM_BOT_TOKEN"); got != "123:abc" {
		t.Fatalf("TELEGRAM_BOT_TOKEN expected 123:abc, got %q", got)
	}
}

func TestLoadEnvDoesNotOverrideExisting(t *testing.T) {
	t.Setenv("CHECK_INTERVAL", "9")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CHECK_INTERVAL=5\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("CHECK_INTERVAL"); got != "9" {
		t.Fatalf("CHECK_INTERVAL expected 9, got %q", got)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	if old, ok := os.LookupEnv(key); ok {
		t.Cleanup(func() { _ = os.Setenv(key, old) })
	} else {
		t.Cleanup(func() { _ = os.Unsetenv(key) })
	}
	_ = os.Unsetenv(key)
}

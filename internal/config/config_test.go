// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points ConfigDir at a fresh directory and clears RIGCHAT_*
// variables that would leak in from the developer's shell.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RIGCHAT_HOME", dir)
	for _, key := range []string{
		EnvAPIURL, EnvToken, EnvTokenFile, EnvAuthBackend, EnvUserID,
		EnvResumeTimeout, EnvNoMarkdown, EnvTheme, EnvLogLevel, EnvLogFormat,
		EnvLogFile, EnvMockAddr, EnvMockToken,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// TestDefaultConfig tests that the built-in configuration is valid.
func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() is invalid: %v", err)
	}
	if !cfg.UI.Markdown {
		t.Error("markdown should default to on")
	}
	if cfg.Stream.ResumeTimeout().Seconds() != 30 {
		t.Errorf("ResumeTimeout = %v, want 30s", cfg.Stream.ResumeTimeout())
	}
	if cfg.Stream.ReadBufferSize() != 32*1024 {
		t.Errorf("ReadBufferSize = %d", cfg.Stream.ReadBufferSize())
	}
}

// TestLoad_NoFile tests the fallback to defaults.
func TestLoad_NoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.BaseURL != Default().API.BaseURL {
		t.Errorf("BaseURL = %q, want default", cfg.API.BaseURL)
	}
}

// TestLoad_Formats tests that each supported format decodes onto the
// defaults.
func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: FileTOML,
			content: `
[api]
base_url = "https://chat.example.com/api"

[ui]
markdown = false
`,
		},
		{
			name: "jsonc",
			file: FileJSON,
			content: `{
  // backend
  "api": {"base_url": "https://chat.example.com/api",},
  /* plain output */
  "ui": {"markdown": false},
}`,
		},
		{
			name: "yaml",
			file: FileYAML,
			content: `
api:
  base_url: https://chat.example.com/api
ui:
  markdown: false
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			writeFile(t, filepath.Join(dir, tt.file), tt.content)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.API.BaseURL != "https://chat.example.com/api" {
				t.Errorf("BaseURL = %q", cfg.API.BaseURL)
			}
			if cfg.UI.Markdown {
				t.Error("markdown should be off")
			}
			if cfg.API.RequestTimeoutSecs != 30 {
				t.Errorf("unset key lost its default: %d", cfg.API.RequestTimeoutSecs)
			}
		})
	}
}

// TestLoad_Precedence tests that TOML wins over JSON.
func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, FileTOML), "[log]\nlevel = \"debug\"\n")
	writeFile(t, filepath.Join(dir, FileJSON), `{"log": {"level": "error"}}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug from TOML", cfg.Log.Level)
	}
}

// TestLoad_Invalid tests that validation problems are reported together.
func TestLoad_Invalid(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, FileTOML), `
[api]
base_url = "ftp://nope"

[log]
format = "xml"
`)

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verrs ValidateErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error %T is not ValidateErrors", err)
	}
	if len(verrs) != 2 {
		t.Errorf("got %d validation errors, want 2: %v", len(verrs), verrs)
	}
}

// TestLoadFile_BadInput tests parse and extension errors.
func TestLoadFile_BadInput(t *testing.T) {
	dir := isolate(t)

	bad := filepath.Join(dir, "broken.toml")
	writeFile(t, bad, "[api\n")
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected TOML parse error")
	}

	ini := filepath.Join(dir, "config.ini")
	writeFile(t, ini, "x=1")
	if _, err := LoadFile(ini); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("err = %v, want unsupported format", err)
	}
}

// TestEnvOverrides tests RIGCHAT_* variables.
func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAPIURL, "https://env.example.com")
	t.Setenv(EnvToken, "t0k")
	t.Setenv(EnvNoMarkdown, "true")
	t.Setenv(EnvResumeTimeout, "5")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.com" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Auth.Token != "t0k" {
		t.Errorf("Token = %q", cfg.Auth.Token)
	}
	if cfg.UI.Markdown {
		t.Error("RIGCHAT_NO_MARKDOWN=true should disable markdown")
	}
	if cfg.Stream.ResumeTimeoutSecs != 5 {
		t.Errorf("ResumeTimeoutSecs = %d", cfg.Stream.ResumeTimeoutSecs)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

// TestApplyEnv_TokenFileImpliesFileBackend tests backend inference.
func TestApplyEnv_TokenFileImpliesFileBackend(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(func(key string) (string, bool) {
		if key == EnvTokenFile {
			return "/run/secrets/token", true
		}
		return "", false
	})
	if cfg.Auth.Backend != "file" {
		t.Errorf("Backend = %q, want file", cfg.Auth.Backend)
	}
}

// TestDotEnv tests that .env values apply without beating the process
// environment.
func TestDotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, FileEnv), "RIGCHAT_USER_ID=from-file\nRIGCHAT_TOKEN=file-token\n")
	t.Setenv(EnvToken, "shell-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Auth.UserID != "from-file" {
		t.Errorf("UserID = %q, want value from .env", cfg.Auth.UserID)
	}
	if cfg.Auth.Token != "shell-token" {
		t.Errorf("Token = %q, process env should win", cfg.Auth.Token)
	}
	if _, set := os.LookupEnv(EnvUserID); set {
		t.Error(".env leaked into the process environment")
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, "api.base_url"},
		{"unknown backend", func(c *Config) { c.Auth.Backend = "ldap" }, "auth.backend"},
		{"file backend without path", func(c *Config) { c.Auth.Backend = "file" }, "auth.token_file"},
		{"zero resume timeout", func(c *Config) { c.Stream.ResumeTimeoutSecs = 0 }, "stream.resume_timeout_secs"},
		{"huge buffer", func(c *Config) { c.Stream.ReadBufferKB = 4096 }, "stream.read_buffer_kb"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"negative delay", func(c *Config) { c.Mock.ChunkDelayMs = -1 }, "mock.chunk_delay_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			var verrs ValidateErrors
			if !errors.As(err, &verrs) || verrs[0].Field != tt.field {
				t.Errorf("err = %v, want field %s", err, tt.field)
			}
		})
	}
}

// TestSaveTOML tests the atomic write round trip and file permissions.
func TestSaveTOML(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	cfg.API.BaseURL = "https://saved.example.com"
	cfg.Auth.Token = "secret"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	path := filepath.Join(dir, FileTOML)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("perm = %o, want 600", perm)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.API.BaseURL != cfg.API.BaseURL || loaded.Auth.Token != "secret" {
		t.Errorf("round trip lost values: %+v", loaded.API)
	}
}

// TestConfig_GetSet tests dot-notation access.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("ui.word_wrap", "100"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := cfg.Set("ui.markdown", "off"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := cfg.Set("log.level", "info"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	v, err := cfg.Get("ui.word_wrap")
	if err != nil || v.(int) != 100 {
		t.Errorf("Get(ui.word_wrap) = %v, %v", v, err)
	}
	if cfg.UI.Markdown {
		t.Error("ui.markdown should be false")
	}
	if v, _ := cfg.Get("log.level"); v != "info" {
		t.Errorf("Get(log.level) = %v", v)
	}
	if v, _ := cfg.Get("api.base-url"); v != cfg.API.BaseURL {
		t.Errorf("dashed key lookup = %v", v)
	}

	for _, key := range []string{"", "api", "api.nope", "nope.level", "ui.word_wrap.x"} {
		if _, err := cfg.Get(key); err == nil {
			t.Errorf("Get(%q) should fail", key)
		}
	}
	if err := cfg.Set("ui.word_wrap", "wide"); err == nil {
		t.Error("Set with non-integer should fail")
	}
}

// TestKeys tests that every key is addressable.
func TestKeys(t *testing.T) {
	cfg := Default()
	keys := Keys()
	if len(keys) == 0 || keys[0] != "api.base_url" {
		t.Fatalf("Keys() = %v", keys)
	}
	for _, k := range keys {
		if _, err := cfg.Get(k); err != nil {
			t.Errorf("Get(%q): %v", k, err)
		}
	}
}

// TestConfig_String tests that secrets are redacted.
func TestConfig_String(t *testing.T) {
	cfg := Default()
	cfg.Auth.Token = "super-secret"
	out := cfg.String()
	if strings.Contains(out, "super-secret") || strings.Contains(out, "dev-token") {
		t.Error("String() leaked a token")
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Error("String() missing redaction marker")
	}
	if cfg.Auth.Token != "super-secret" {
		t.Error("String() modified the original")
	}
}

// TestLoadForEdit tests that edits round-trip through every format and
// skip environment overrides.
func TestLoadForEdit(t *testing.T) {
	dir := isolate(t)
	t.Setenv(EnvAPIURL, "https://env.example.com")

	cfg, path, err := LoadForEdit("")
	if err != nil {
		t.Fatalf("LoadForEdit() error: %v", err)
	}
	if want := filepath.Join(dir, FileTOML); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if cfg.API.BaseURL == "https://env.example.com" {
		t.Error("LoadForEdit applied environment overrides")
	}

	for _, name := range []string{"edit.toml", "edit.json", "edit.yaml"} {
		cfg := Default()
		cfg.API.BaseURL = "https://file.example.com"
		cfg.Stream.ResumeTimeoutSecs = 12
		p := filepath.Join(dir, name)
		if err := SaveFile(cfg, p); err != nil {
			t.Fatalf("SaveFile(%s) error: %v", name, err)
		}

		got, gotPath, err := LoadForEdit(p)
		if err != nil {
			t.Fatalf("LoadForEdit(%s) error: %v", name, err)
		}
		if gotPath != p {
			t.Errorf("%s: path = %q", name, gotPath)
		}
		if got.API.BaseURL != "https://file.example.com" || got.Stream.ResumeTimeoutSecs != 12 {
			t.Errorf("%s: got base_url=%q resume=%d", name, got.API.BaseURL, got.Stream.ResumeTimeoutSecs)
		}
	}

	if err := SaveFile(Default(), filepath.Join(dir, "edit.ini")); err == nil {
		t.Error("expected unsupported format error")
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/rigrun-chat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigchat configuration.
type Config struct {
	API    APIConfig    `toml:"api" json:"api" yaml:"api"`
	Auth   AuthConfig   `toml:"auth" json:"auth" yaml:"auth"`
	Stream StreamConfig `toml:"stream" json:"stream" yaml:"stream"`
	UI     UIConfig     `toml:"ui" json:"ui" yaml:"ui"`
	Log    LogConfig    `toml:"log" json:"log" yaml:"log"`
	Mock   MockConfig   `toml:"mock" json:"mock" yaml:"mock"`
}

// APIConfig locates the chat backend.
type APIConfig struct {
	// BaseURL is the backend root, e.g. "https://chat.example.com/api".
	BaseURL string `toml:"base_url" json:"base_url" yaml:"base_url"`

	// RequestTimeoutSecs bounds history and chat list requests.
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs" yaml:"request_timeout_secs"`
}

// AuthConfig selects where bearer tokens come from.
type AuthConfig struct {
	// Backend is "static" (token from config or env) or "file" (token file
	// reloaded on change).
	Backend   string `toml:"backend" json:"backend" yaml:"backend"`
	Token     string `toml:"token" json:"token" yaml:"token"`
	TokenFile string `toml:"token_file" json:"token_file" yaml:"token_file"`

	// UserID overrides the subject claim of the token.
	UserID string `toml:"user_id" json:"user_id" yaml:"user_id"`

	MaxFailures  int `toml:"max_failures" json:"max_failures" yaml:"max_failures"`
	BlockMinutes int `toml:"block_minutes" json:"block_minutes" yaml:"block_minutes"`
}

// StreamConfig tunes stream consumption.
type StreamConfig struct {
	// ResumeTimeoutSecs bounds the wait for the first byte of an
	// elicitation resume stream.
	ResumeTimeoutSecs int `toml:"resume_timeout_secs" json:"resume_timeout_secs" yaml:"resume_timeout_secs"`

	ReadBufferKB int `toml:"read_buffer_kb" json:"read_buffer_kb" yaml:"read_buffer_kb"`
}

// UIConfig contains terminal presentation settings.
type UIConfig struct {
	Markdown bool `toml:"markdown" json:"markdown" yaml:"markdown"`

	// Theme is a glamour style name or "auto".
	Theme       string `toml:"theme" json:"theme" yaml:"theme"`
	WordWrap    int    `toml:"word_wrap" json:"word_wrap" yaml:"word_wrap"`
	Greeting    string `toml:"greeting" json:"greeting" yaml:"greeting"`
	HistoryFile string `toml:"history_file" json:"history_file" yaml:"history_file"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level"`
	Format string `toml:"format" json:"format" yaml:"format"`
	File   string `toml:"file" json:"file" yaml:"file"`
}

// MockConfig configures the bundled mock backend.
type MockConfig struct {
	Addr         string `toml:"addr" json:"addr" yaml:"addr"`
	Token        string `toml:"token" json:"token" yaml:"token"`
	Model        string `toml:"model" json:"model" yaml:"model"`
	ChunkSize    int    `toml:"chunk_size" json:"chunk_size" yaml:"chunk_size"`
	ChunkDelayMs int    `toml:"chunk_delay_ms" json:"chunk_delay_ms" yaml:"chunk_delay_ms"`
}

// RequestTimeout returns the JSON request timeout.
func (c APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// BlockDuration returns how long repeated auth failures block requests.
func (c AuthConfig) BlockDuration() time.Duration {
	return time.Duration(c.BlockMinutes) * time.Minute
}

// ResumeTimeout returns the first-byte timeout for resume streams.
func (c StreamConfig) ResumeTimeout() time.Duration {
	return time.Duration(c.ResumeTimeoutSecs) * time.Second
}

// ReadBufferSize returns the stream read buffer size in bytes.
func (c StreamConfig) ReadBufferSize() int {
	return c.ReadBufferKB * 1024
}

// ChunkDelay returns the pause between mock content chunks.
func (c MockConfig) ChunkDelay() time.Duration {
	return time.Duration(c.ChunkDelayMs) * time.Millisecond
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:            "http://127.0.0.1:8787",
			RequestTimeoutSecs: 30,
		},
		Auth: AuthConfig{
			Backend:      "static",
			MaxFailures:  3,
			BlockMinutes: 5,
		},
		Stream: StreamConfig{
			ResumeTimeoutSecs: 30,
			ReadBufferKB:      32,
		},
		UI: UIConfig{
			Markdown: true,
			Theme:    "auto",
			WordWrap: 80,
			Greeting: "Hi! How can I assist you today?",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "auto",
		},
		Mock: MockConfig{
			Addr:         "127.0.0.1:8787",
			Token:        "dev-token",
			Model:        "mock-1",
			ChunkSize:    8,
			ChunkDelayMs: 30,
		},
	}
}

// SetDefaults fills zero values that a config file may have cleared.
func (c *Config) SetDefaults() {
	def := Default()
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	if c.API.RequestTimeoutSecs == 0 {
		c.API.RequestTimeoutSecs = def.API.RequestTimeoutSecs
	}
	if c.Auth.Backend == "" {
		c.Auth.Backend = def.Auth.Backend
	}
	if c.Auth.MaxFailures == 0 {
		c.Auth.MaxFailures = def.Auth.MaxFailures
	}
	if c.Auth.BlockMinutes == 0 {
		c.Auth.BlockMinutes = def.Auth.BlockMinutes
	}
	if c.Stream.ResumeTimeoutSecs == 0 {
		c.Stream.ResumeTimeoutSecs = def.Stream.ResumeTimeoutSecs
	}
	if c.Stream.ReadBufferKB == 0 {
		c.Stream.ReadBufferKB = def.Stream.ReadBufferKB
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Mock.Addr == "" {
		c.Mock.Addr = def.Mock.Addr
	}
	if c.Mock.Model == "" {
		c.Mock.Model = def.Mock.Model
	}
	if c.Mock.ChunkSize == 0 {
		c.Mock.ChunkSize = def.Mock.ChunkSize
	}
}

// =============================================================================
// FILE PATHS
// =============================================================================

// File names probed by Load, in order.
const (
	FileTOML = "config.toml"
	FileJSON = "config.json"
	FileYAML = "config.yaml"
	FileEnv  = ".env"
)

// ConfigDir returns the rigchat configuration directory. RIGCHAT_HOME
// overrides the default of ~/.rigchat.
func ConfigDir() (string, error) {
	if dir := os.Getenv("RIGCHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigchat"), nil
}

// ConfigPath returns the path of the TOML config file written by Save.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileTOML), nil
}

// ExistingPath returns the first config file present in the config
// directory, or "" when there is none.
func ExistingPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	for _, name := range []string{FileTOML, FileJSON, FileYAML} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens a config file to 0600 since it may hold
// a bearer token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the first of config.toml, config.json and config.yaml found in
// ConfigDir, falling back to defaults. Values from .env files and RIGCHAT_*
// environment variables are applied on top and the result is validated.
func Load() (*Config, error) {
	path, err := ExistingPath()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return finish(Default())
	}
	return LoadFile(path)
}

// LoadFile reads a config file, choosing the decoder by extension, then
// applies environment overrides and validates.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(cfg, path); err != nil {
		return nil, err
	}
	_ = ensureSecurePermissions(path)
	return finish(cfg)
}

// LoadForEdit reads the config file at path, or the one Load would pick
// when path is empty, without environment overrides or validation. It
// returns the file to write back, which is ConfigPath when none exists yet.
func LoadForEdit(path string) (*Config, string, error) {
	if path == "" {
		existing, err := ExistingPath()
		if err != nil {
			return nil, "", err
		}
		path = existing
	}
	cfg := Default()
	if path == "" {
		p, err := ConfigPath()
		return cfg, p, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, path, nil
	}
	if err := decodeFile(cfg, path); err != nil {
		return nil, "", err
	}
	cfg.SetDefaults()
	return cfg, path, nil
}

// SaveFile writes cfg in the format chosen by path's extension.
func SaveFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return SaveTOML(cfg, path)
	case ".json", ".jsonc":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnv(envLookup(dotEnvFiles()...))
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// decodeFile decodes path into cfg. Keys absent from the file keep the
// values already in cfg.
func decodeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse TOML config %s: %w", path, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return fmt.Errorf("failed to parse JSON config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

// dotEnvFiles lists the .env files that exist, working directory first.
func dotEnvFiles() []string {
	candidates := []string{FileEnv}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, FileEnv))
	}
	var files []string
	for _, f := range candidates {
		if _, err := os.Stat(f); err == nil {
			files = append(files, f)
		}
	}
	return files
}

// envLookup resolves variables from the process environment, then from the
// given .env files in order. The process environment is never modified.
func envLookup(files ...string) func(string) (string, bool) {
	fromFiles := make(map[string]string)
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if err != nil {
			continue
		}
		for k, v := range vals {
			if _, seen := fromFiles[k]; !seen {
				fromFiles[k] = v
			}
		}
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fromFiles[key]
		return v, ok
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to ConfigPath.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return SaveTOML(cfg, path)
}

// SaveTOML atomically writes cfg as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# rigchat configuration file\n")
	buf.WriteString("# Generated by rigchat - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validBackends = []string{"static", "file"}
	validFormats  = []string{"auto", "console", "json"}
	validThemes   = []string{"auto", "dark", "light", "notty", "ascii", "dracula", "pink", "tokyo-night"}
)

// Validate checks every field and returns all problems as ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		add("api.base_url", "must be an absolute http or https URL, got %q", c.API.BaseURL)
	}
	if c.API.RequestTimeoutSecs < 1 || c.API.RequestTimeoutSecs > 600 {
		add("api.request_timeout_secs", "must be between 1 and 600, got %d", c.API.RequestTimeoutSecs)
	}

	if !contains(validBackends, c.Auth.Backend) {
		add("auth.backend", "must be one of %s, got %q", strings.Join(validBackends, ", "), c.Auth.Backend)
	}
	if c.Auth.Backend == "file" && c.Auth.TokenFile == "" {
		add("auth.token_file", "required when auth.backend is \"file\"")
	}
	if c.Auth.MaxFailures < 1 || c.Auth.MaxFailures > 100 {
		add("auth.max_failures", "must be between 1 and 100, got %d", c.Auth.MaxFailures)
	}
	if c.Auth.BlockMinutes < 0 {
		add("auth.block_minutes", "must not be negative, got %d", c.Auth.BlockMinutes)
	}

	if c.Stream.ResumeTimeoutSecs < 1 || c.Stream.ResumeTimeoutSecs > 600 {
		add("stream.resume_timeout_secs", "must be between 1 and 600, got %d", c.Stream.ResumeTimeoutSecs)
	}
	if c.Stream.ReadBufferKB < 1 || c.Stream.ReadBufferKB > 1024 {
		add("stream.read_buffer_kb", "must be between 1 and 1024, got %d", c.Stream.ReadBufferKB)
	}

	if !contains(validThemes, c.UI.Theme) {
		add("ui.theme", "must be one of %s, got %q", strings.Join(validThemes, ", "), c.UI.Theme)
	}
	if c.UI.WordWrap < 0 || c.UI.WordWrap > 500 {
		add("ui.word_wrap", "must be between 0 and 500, got %d", c.UI.WordWrap)
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil || c.Log.Level == "" {
		add("log.level", "unknown level %q", c.Log.Level)
	}
	if !contains(validFormats, c.Log.Format) {
		add("log.format", "must be one of %s, got %q", strings.Join(validFormats, ", "), c.Log.Format)
	}

	if c.Mock.ChunkSize < 1 {
		add("mock.chunk_size", "must be positive, got %d", c.Mock.ChunkSize)
	}
	if c.Mock.ChunkDelayMs < 0 {
		add("mock.chunk_delay_ms", "must not be negative, got %d", c.Mock.ChunkDelayMs)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// Environment variables read by ApplyEnv.
const (
	EnvAPIURL        = "RIGCHAT_API_URL"
	EnvToken         = "RIGCHAT_TOKEN"
	EnvTokenFile     = "RIGCHAT_TOKEN_FILE"
	EnvAuthBackend   = "RIGCHAT_AUTH_BACKEND"
	EnvUserID        = "RIGCHAT_USER_ID"
	EnvResumeTimeout = "RIGCHAT_RESUME_TIMEOUT"
	EnvNoMarkdown    = "RIGCHAT_NO_MARKDOWN"
	EnvTheme         = "RIGCHAT_THEME"
	EnvLogLevel      = "RIGCHAT_LOG_LEVEL"
	EnvLogFormat     = "RIGCHAT_LOG_FORMAT"
	EnvLogFile       = "RIGCHAT_LOG_FILE"
	EnvMockAddr      = "RIGCHAT_MOCK_ADDR"
	EnvMockToken     = "RIGCHAT_MOCK_TOKEN"
)

// ApplyEnvOverrides applies RIGCHAT_* variables from the process
// environment.
func (c *Config) ApplyEnvOverrides() {
	c.ApplyEnv(os.LookupEnv)
}

// ApplyEnv applies RIGCHAT_* variables resolved through lookup. Malformed
// numeric values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvAPIURL, &c.API.BaseURL)
	str(EnvToken, &c.Auth.Token)
	str(EnvTokenFile, &c.Auth.TokenFile)
	str(EnvAuthBackend, &c.Auth.Backend)
	str(EnvUserID, &c.Auth.UserID)
	str(EnvTheme, &c.UI.Theme)
	str(EnvLogLevel, &c.Log.Level)
	str(EnvLogFormat, &c.Log.Format)
	str(EnvLogFile, &c.Log.File)
	str(EnvMockAddr, &c.Mock.Addr)
	str(EnvMockToken, &c.Mock.Token)

	if v, ok := lookup(EnvResumeTimeout); ok {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Stream.ResumeTimeoutSecs = secs
		}
	}
	if v, ok := lookup(EnvNoMarkdown); ok {
		if off, err := strconv.ParseBool(v); err == nil {
			c.UI.Markdown = !off
		}
	}

	// A token file implies the file backend unless one was chosen explicitly.
	if _, explicit := lookup(EnvAuthBackend); !explicit && c.Auth.TokenFile != "" && c.Auth.Token == "" {
		c.Auth.Backend = "file"
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by its dotted file key, e.g. "api.base_url".
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookupField(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by its dotted file key. String values are converted
// to the field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookupField(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookupField(key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	if key == "" || len(parts) != 2 {
		return reflect.Value{}, fmt.Errorf("invalid key %q (want section.name)", key)
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("%s is a section, not a value", key)
			}
			return field, nil
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag is name. Dashes are
// accepted in place of underscores.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tomlName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tomlName(f reflect.StructField) string {
	tag, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	return tag
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			switch strings.ToLower(strVal) {
			case "1", "true", "yes", "on":
				field.SetBool(true)
			case "0", "false", "no", "off":
				field.SetBool(false)
			default:
				return fmt.Errorf("invalid boolean value: %q", strVal)
			}
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("nil value")
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every settable key in dot notation, in declaration order.
func Keys() []string {
	var keys []string
	root := reflect.TypeOf(Config{})
	for i := 0; i < root.NumField(); i++ {
		section := root.Field(i)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, tomlName(section)+"."+tomlName(section.Type.Field(j)))
		}
	}
	return keys
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy with secrets masked.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Auth.Token != "" {
		safe.Auth.Token = "[REDACTED]"
	}
	if safe.Mock.Token != "" {
		safe.Mock.Token = "[REDACTED]"
	}
	return safe
}

// String returns a TOML rendering of the config with tokens redacted.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.Redacted()); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}

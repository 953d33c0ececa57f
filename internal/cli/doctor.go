// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Doctor command implementation for rigchat.
//
// Command: doctor [subcommand]
// Short:   Check configuration, credentials and backend connectivity
// Aliases: diag
//
// Subcommands:
//   (default)           Run all health checks
//   fix                 Run checks and apply the safe local fixes
//
// Examples:
//   rigchat doctor                Run all health checks
//   rigchat doctor --json         Health check results in JSON
//   rigchat doctor fix            Tighten config permissions, create dirs
//
// Health Checks Performed:
//   1. Config Valid       - Loads and validates the configuration
//   2. Config File        - Checks the file exists and is private
//   3. Access Token       - Checks a token is available
//   4. User ID            - Checks the user id is known
//   5. Backend Reachable  - Lists chats with the configured credentials
//   6. History Writable   - Checks the input history directory
//
// Exit Codes:
//   0   All checks passed
//   1   One or more checks failed
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-chat/internal/auth"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/transport"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// doctorProbeTimeout bounds the backend reachability check.
const doctorProbeTimeout = 10 * time.Second

// =============================================================================
// DOCTOR STYLES
// =============================================================================

var (
	checkPassStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	checkWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)

	checkFailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// Fix suggestion style
	fixStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true).
			PaddingLeft(2)
)

// =============================================================================
// HEALTH CHECK TYPES
// =============================================================================

// CheckStatus represents the status of a health check.
type CheckStatus int

const (
	// CheckPass indicates the check passed successfully.
	CheckPass CheckStatus = iota
	// CheckWarn indicates a non-critical issue.
	CheckWarn
	// CheckFail indicates the check failed.
	CheckFail
)

// String returns the string representation of the check status.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarn:
		return "warn"
	case CheckFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns the status marker.
func (s CheckStatus) Symbol() string {
	switch s {
	case CheckPass:
		return checkPassStyle.Render("[OK]")
	case CheckWarn:
		return checkWarnStyle.Render("[!!]")
	case CheckFail:
		return checkFailStyle.Render("[FAIL]")
	default:
		return "?"
	}
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // Suggested fix

	// apply performs the fix for "doctor fix"; nil means manual only.
	apply func() error
}

// Render returns a formatted string representation of the health check.
func (c *HealthCheck) Render() string {
	result := fmt.Sprintf("%s %s", c.Status.Symbol(), c.Message)
	if c.Status != CheckPass && c.Fix != "" {
		result += "\n" + fixStyle.Render("-> "+c.Fix)
	}
	return result
}

// TryFix applies the fix if one is available.
func (c *HealthCheck) TryFix() error {
	if c.Status == CheckPass {
		return nil
	}
	if c.apply == nil {
		return fmt.Errorf("manual fix required: %s", c.Fix)
	}
	return c.apply()
}

// doctorCheck is the JSON form of a check.
type doctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`
}

// doctorData is the payload of "rigchat doctor --json".
type doctorData struct {
	Checks  []doctorCheck `json:"checks"`
	Passed  int           `json:"passed"`
	Warned  int           `json:"warned"`
	Failed  int           `json:"failed"`
	Healthy bool          `json:"healthy"`
}

// =============================================================================
// HANDLE DOCTOR
// =============================================================================

// HandleDoctor runs the health checks and, for "doctor fix", applies the
// local fixes.
func HandleDoctor(ctx context.Context, args Args, s Streams) error {
	checks := runAllChecks(ctx, args)

	data := doctorData{Checks: make([]doctorCheck, 0, len(checks))}
	for _, check := range checks {
		switch check.Status {
		case CheckPass:
			data.Passed++
		case CheckWarn:
			data.Warned++
		case CheckFail:
			data.Failed++
		}
		data.Checks = append(data.Checks, doctorCheck{
			Name:    check.Name,
			Status:  check.Status.String(),
			Message: check.Message,
			Fix:     check.Fix,
		})
	}
	data.Healthy = data.Failed == 0

	if args.JSON {
		resp := NewJSONResponse("doctor", data)
		if data.Failed > 0 {
			msg := fmt.Sprintf("%d health check(s) failed", data.Failed)
			resp.Success = false
			resp.Error = &msg
		}
		if err := resp.Write(s.Out); err != nil {
			return err
		}
	} else {
		printDoctor(s.Out, checks, data)
	}

	if args.Subcommand == "fix" && (data.Warned > 0 || data.Failed > 0) {
		fmt.Fprintln(s.Out, TitleStyle.Render("Applying fixes..."))
		for _, check := range checks {
			if check.Status == CheckPass {
				continue
			}
			if err := check.TryFix(); err != nil {
				fmt.Fprintf(s.Out, "  %s Could not fix %s: %s\n", checkWarnStyle.Render("[!!]"), check.Name, err)
			} else {
				fmt.Fprintf(s.Out, "  %s Fixed %s\n", checkPassStyle.Render("[OK]"), check.Name)
			}
		}
	}

	if data.Failed > 0 {
		return fmt.Errorf("%d health check(s) failed", data.Failed)
	}
	return nil
}

func printDoctor(w io.Writer, checks []*HealthCheck, data doctorData) {
	fmt.Fprintln(w, TitleStyle.Render("rigchat doctor"))
	fmt.Fprintln(w, RenderSeparator(41))
	for _, check := range checks {
		fmt.Fprintln(w, check.Render())
	}
	fmt.Fprintln(w, RenderSeparator(41))

	parts := []string{fmt.Sprintf("%d passed", data.Passed)}
	if data.Warned > 0 {
		parts = append(parts, checkWarnStyle.Render(fmt.Sprintf("%d warning", data.Warned)))
	}
	if data.Failed > 0 {
		parts = append(parts, checkFailStyle.Render(fmt.Sprintf("%d failed", data.Failed)))
	}
	fmt.Fprintln(w, DimStyle.Render(strings.Join(parts, ", ")))
}

// =============================================================================
// CHECKS
// =============================================================================

// runAllChecks runs the checks in order. Checks that depend on an earlier
// failure are skipped.
func runAllChecks(ctx context.Context, args Args) []*HealthCheck {
	cfg, cfgCheck := checkConfigValid(args)
	checks := []*HealthCheck{cfgCheck, checkConfigFile(args)}
	if cfg == nil {
		return checks
	}

	tokens, err := auth.New(auth.Options{
		Backend:       cfg.Auth.Backend,
		Token:         cfg.Auth.Token,
		TokenFile:     cfg.Auth.TokenFile,
		UserID:        cfg.Auth.UserID,
		MaxFailures:   cfg.Auth.MaxFailures,
		BlockDuration: cfg.Auth.BlockDuration(),
	}, zerolog.Nop())
	if err != nil {
		return append(checks, &HealthCheck{
			Name:    "Access Token",
			Status:  CheckFail,
			Message: "Token provider failed: " + err.Error(),
			Fix:     "Check auth.backend and auth.token_file",
		})
	}
	if c, ok := tokens.(io.Closer); ok {
		defer c.Close()
	}

	tokenCheck := checkAccessToken(ctx, tokens)
	userCheck := checkUserID(ctx, tokens)
	checks = append(checks, tokenCheck, userCheck)
	if tokenCheck.Status == CheckPass && userCheck.Status == CheckPass {
		client := transport.NewClient(cfg.API.BaseURL, tokens, zerolog.Nop()).
			WithRequestTimeout(cfg.API.RequestTimeout())
		checks = append(checks, checkBackend(ctx, client))
	}
	return append(checks, checkHistoryWritable(cfg))
}

func checkConfigValid(args Args) (*config.Config, *HealthCheck) {
	check := &HealthCheck{Name: "Config Valid"}
	cfg, err := LoadConfig(args)
	if err != nil {
		check.Status = CheckFail
		check.Message = "Config invalid: " + util.FirstLine(err.Error())
		check.Fix = "Run: rigchat config show, then rigchat config set <key> <value>"
		return nil, check
	}
	check.Status = CheckPass
	check.Message = "Config valid (backend " + cfg.API.BaseURL + ")"
	return cfg, check
}

func checkConfigFile(args Args) *HealthCheck {
	check := &HealthCheck{Name: "Config File"}
	path, err := configFile(args)
	if err != nil {
		check.Status = CheckWarn
		check.Message = "Config directory unknown: " + err.Error()
		return check
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		check.Status = CheckWarn
		check.Message = "No config file, using defaults"
		check.Fix = "Run: rigchat config init"
		check.apply = func() error { return config.SaveFile(config.Default(), path) }
		return check
	}
	if err != nil {
		check.Status = CheckFail
		check.Message = "Config file unreadable: " + err.Error()
		return check
	}

	if mode := info.Mode().Perm(); mode&0077 != 0 {
		check.Status = CheckWarn
		check.Message = fmt.Sprintf("Config file %s is readable by others (%o)", path, mode)
		check.Fix = "chmod 600 " + path
		check.apply = func() error { return os.Chmod(path, 0600) }
		return check
	}
	check.Status = CheckPass
	check.Message = "Config file " + path
	return check
}

func checkAccessToken(ctx context.Context, tokens auth.Provider) *HealthCheck {
	check := &HealthCheck{Name: "Access Token"}
	if _, err := tokens.AccessToken(ctx); err != nil {
		check.Status = CheckFail
		check.Message = "No usable access token: " + err.Error()
		check.Fix = errorHint(err)
		return check
	}
	check.Status = CheckPass
	check.Message = "Access token available"
	return check
}

func checkUserID(ctx context.Context, tokens auth.Provider) *HealthCheck {
	check := &HealthCheck{Name: "User ID"}
	id, err := tokens.UserID(ctx)
	if err != nil {
		check.Status = CheckFail
		check.Message = "User id unknown: " + err.Error()
		check.Fix = errorHint(err)
		return check
	}
	check.Status = CheckPass
	check.Message = "User " + id
	return check
}

func checkBackend(ctx context.Context, client *transport.Client) *HealthCheck {
	check := &HealthCheck{Name: "Backend Reachable"}
	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()

	chats, err := client.ListChats(ctx)
	if err != nil {
		check.Status = CheckFail
		check.Message = "Backend request failed: " + err.Error()
		check.Fix = errorHint(err)
		if check.Fix == "" {
			check.Fix = "Check api.base_url"
		}
		return check
	}
	check.Status = CheckPass
	check.Message = fmt.Sprintf("Backend reachable, %d chat(s)", len(chats))
	return check
}

func checkHistoryWritable(cfg *config.Config) *HealthCheck {
	check := &HealthCheck{Name: "History Writable"}
	dir := filepath.Dir(historyPath(cfg))

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		check.Status = CheckWarn
		check.Message = "History directory " + dir + " does not exist yet"
		check.Fix = "mkdir -p " + dir
		check.apply = func() error { return os.MkdirAll(dir, 0700) }
		return check
	}

	f, err := os.CreateTemp(dir, ".rigchat-probe-*")
	if err != nil {
		check.Status = CheckWarn
		check.Message = "History directory not writable: " + err.Error()
		return check
	}
	f.Close()
	os.Remove(f.Name())

	check.Status = CheckPass
	check.Message = "History directory " + dir
	return check
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and saves rigchat settings.
//
// Configuration is read from the first file found in ~/.rigchat (or
// $RIGCHAT_HOME):
//   - config.toml
//   - config.json (comments and trailing commas allowed)
//   - config.yaml
//
// Keys missing from the file keep their defaults. RIGCHAT_* variables from
// the environment, then from .env files, override file values, and the
// merged result is validated.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := transport.NewClient(cfg.API.BaseURL, tokens, logger)
package config

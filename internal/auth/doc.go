// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth supplies bearer tokens and the user id to the transport.
//
// The transport sees a single Provider capability. Deployment config picks
// one backing implementation:
//
//   - static: token and user id taken from configuration
//   - file: token read from a file and reloaded when the file changes
//
// The user id comes from configuration, or from the "sub" claim of the
// access token when none is configured. Repeated authentication failures
// reported through OnAuthError block the provider for a cool-down period.
package auth

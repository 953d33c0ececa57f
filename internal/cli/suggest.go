// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - Command suggestion for typo correction.
package cli

import (
	"sort"
	"strings"
)

// SuggestCommand returns the closest command name to input, or "" when
// nothing is close enough.
func SuggestCommand(input string) string {
	names := make([]string, 0, len(commandNames))
	for name := range commandNames {
		names = append(names, name)
	}
	return suggest(input, names)
}

// SuggestSlash returns the closest chat command to input (without the
// leading slash).
func SuggestSlash(input string) string {
	var names []string
	for _, c := range slashCommands {
		names = append(names, c.name)
		names = append(names, c.aliases...)
	}
	return suggest(input, names)
}

// suggest picks the candidate with the smallest edit distance within a
// threshold that grows with the input length.
func suggest(input string, candidates []string) string {
	input = strings.ToLower(input)
	if len(input) < 2 {
		return ""
	}

	maxDistance := 1
	if len(input) >= 4 {
		maxDistance = 2
	}
	if len(input) > 8 {
		maxDistance = 3
	}

	sort.Strings(candidates)
	bestMatch := ""
	bestDistance := -1
	for _, cmd := range candidates {
		distance := levenshteinDistance(input, cmd)
		if distance == 0 {
			return ""
		}
		if distance <= maxDistance && (bestDistance == -1 || distance < bestDistance) {
			bestDistance = distance
			bestMatch = cmd
		}
	}
	return bestMatch
}

// levenshteinDistance calculates the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	cols := len(s2) + 1
	prev := make([]int, cols)
	curr := make([]int, cols)
	for j := 0; j < cols; j++ {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j < cols; j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[cols-1]
}

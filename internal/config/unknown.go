package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownGlobalKeys are the valid flat top-level keys in the config file.
// These correspond to fields in the embedded sub-config structs.
var knownGlobalKeys = map[string]bool{
	// Server
	"server_url": true,
	// Transfers
	"download_dir": true, "max_upload_size": true, "history_enabled": true,
	// Safety
	"confirm_deletes": true,
	// Logging
	"log_level": true, "log_file": true, "log_format": true,
	// Network
	"connect_timeout": true, "data_timeout": true, "user_agent": true,
}

// knownGlobalKeysList is the sorted slice form of knownGlobalKeys for
// Levenshtein matching. Sorted for deterministic suggestions when two
// candidates have the same edit distance.
var knownGlobalKeysList = func() []string {
	keys := make([]string, 0, len(knownGlobalKeys))
	for k := range knownGlobalKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	for _, key := range undecoded {
		errs = append(errs, buildGlobalKeyError(key.String()))
	}

	return errors.Join(errs...)
}

// buildGlobalKeyError creates a descriptive error for an unknown key,
// optionally suggesting the closest known key. Keys inside a table
// ("[network] timeout") are matched on their leaf name, since every valid
// key is top-level.
func buildGlobalKeyError(keyStr string) error {
	parts := strings.Split(keyStr, ".")
	leaf := parts[len(parts)-1]

	if len(parts) > 1 && knownGlobalKeys[leaf] {
		return fmt.Errorf("config key %q must be at top level, not inside [%s]",
			leaf, strings.Join(parts[:len(parts)-1], "."))
	}

	suggestion := closestMatch(leaf, knownGlobalKeysList)
	if suggestion != "" {
		return fmt.Errorf("unknown config key %q, did you mean %q?", keyStr, suggestion)
	}

	return fmt.Errorf("unknown config key %q", keyStr)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Use single-row optimization to avoid allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// minOf returns the minimum of three integers.
func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}

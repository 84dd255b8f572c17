package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions.
const maxLevenshteinDistance = 3

// knownKeys maps each config section to its valid keys.
var knownKeys = map[string][]string{
	"server":      {"api_url", "api_key", "timeout"},
	"destination": {"collection_name", "root_folder_path", "root_folder_id", "public_folders"},
	"transfer":    {"upload_chunk_size", "hash_chunk_size"},
	"logging":     {"log_level", "log_format"},
	"journal":     {"enabled", "path"},
	"watch":       {"settle_time"},
}

// knownSections is sorted for deterministic suggestions.
var knownSections = func() []string {
	out := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}()

// allKnownKeys flattens every section's keys, used to suggest a key that was
// placed at the top level or in the wrong section.
var allKnownKeys = func() []string {
	var out []string
	for _, keys := range knownKeys {
		out = append(out, keys...)
	}

	sort.Strings(out)

	return out
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
		errs = append(errs, unknownKeyError(key))
	}

	return errors.Join(errs...)
}

func unknownKeyError(key toml.Key) error {
	if len(key) == 1 {
		name := key[0]
		if s := closestMatch(name, knownSections); s != "" {
			return fmt.Errorf("unknown config key %q, did you mean section [%s]?", name, s)
		}

		if s := closestMatch(name, allKnownKeys); s != "" {
			return fmt.Errorf("unknown config key %q, did you mean %q (inside its section)?", name, s)
		}

		return fmt.Errorf("unknown config key %q", name)
	}

	section, name := key[0], key[len(key)-1]

	keys, ok := knownKeys[section]
	if !ok {
		return fmt.Errorf("unknown config key %q", key.String())
	}

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	if s := closestMatch(name, sorted); s != "" {
		return fmt.Errorf("unknown config key %q in [%s], did you mean %q?", name, section, s)
	}

	return fmt.Errorf("unknown config key %q in [%s]", name, section)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(strings.ToLower(unknown), k)
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

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup parses the variable key with parse. Unset or unparsable values
// yield def; surrounding whitespace is ignored.
func lookup[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

// getEnv returns the raw value, including an explicitly empty one.
func getEnv(key, def string) string {
	if raw, ok := os.LookupEnv(key); ok {
		return raw
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	return lookup(key, def, strconv.Atoi)
}

func getEnvAsFloat(key string, def float64) float64 {
	return lookup(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getEnvAsBool(key string, def bool) bool {
	return lookup(key, def, strconv.ParseBool)
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	return lookup(key, def, time.ParseDuration)
}

// getEnvAsStringSlice splits a comma separated list, dropping blank entries.
// A list with no entries left falls back to def.
func getEnvAsStringSlice(key string, def []string) []string {
	items := lookup(key, []string(nil), func(s string) ([]string, error) {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	})
	if len(items) == 0 {
		return def
	}
	return items
}

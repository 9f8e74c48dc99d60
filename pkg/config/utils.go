package config

import (
	"os"
	"strconv"
	"time"
)

// lookupEnvOrString returns the value of the environment variable named by the key,
// or the default value if the variable is not set.
func lookupEnvOrString(key string, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}

	return defaultVal
}

// lookupEnvOrBool returns the boolean value of the environment variable named by the key,
// or the default value if the variable is not set or unparseable.
func lookupEnvOrBool(key string, defaultVal bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}

	if parseBool, err := strconv.ParseBool(val); err == nil {
		return parseBool
	}

	return defaultVal
}

// lookupEnvOrDuration returns the duration value of the environment variable named by the key,
// or the default value if the variable is not set or unparseable.
func lookupEnvOrDuration(key string, defaultVal time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}

	if duration, err := time.ParseDuration(val); err == nil {
		return duration
	}

	return defaultVal
}

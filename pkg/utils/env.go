// Package utils offers functions of general utility in other parts of the system
package utils

import (
	"fmt"
	"strconv"
)

// GetBooleanEnvVar returns a boolean variable from the given set of environment variables.
// If variable is not set returns the default value. An invalid value is an error.
func GetBooleanEnvVar(vars map[string]string, envVar string, defaultValue bool) (bool, error) {
	value, found := vars[envVar]
	if !found || value == "" {
		return defaultValue, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid value for %s: %q", envVar, value)
	}

	return b, nil
}

// GetIntEnvVar returns an integer variable from the given set of environment variables.
// If variable is not set returns the default value. An invalid value is an error.
func GetIntEnvVar(vars map[string]string, envVar string, defaultValue int) (int, error) {
	value, found := vars[envVar]
	if !found || value == "" {
		return defaultValue, nil
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid value for %s: %q", envVar, value)
	}

	return i, nil
}

// GetStringEnvVar returns a string variable from the given set of environment variables.
// If variable is not set returns the default value
func GetStringEnvVar(vars map[string]string, envVar string, defaultValue string) string {
	value := vars[envVar]
	if value == "" {
		return defaultValue
	}
	return value
}

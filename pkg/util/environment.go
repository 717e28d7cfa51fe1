package util

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Environment map[string]string

func GetEnvironmentVariables() Environment {
	environmentVariables := Environment{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

func (e Environment) String(key string, defaultValue string) string {
	if value := e[key]; value != "" {
		return value
	}
	return defaultValue
}

func (e Environment) Int(key string, defaultValue int) int {
	if value := e[key]; value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (e Environment) Float(key string, defaultValue float64) float64 {
	if value := e[key]; value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Bool accepts YES/NO alongside the strconv spellings
func (e Environment) Bool(key string, defaultValue bool) bool {
	value := strings.ToUpper(strings.TrimSpace(e[key]))
	switch value {
	case "":
		return defaultValue
	case "YES", "Y", "ON":
		return true
	case "NO", "N", "OFF":
		return false
	}

	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed
	}
	return defaultValue
}

func (e Environment) Duration(key string, defaultValue time.Duration) time.Duration {
	if value := e[key]; value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

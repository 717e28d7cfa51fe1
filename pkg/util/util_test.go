package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormaliseIdentifiers(t *testing.T) {
	assert.Equal(t, []string{"101", "202"}, NormaliseIdentifiers([]string{" 101", "202 ", "", "101", "   "}))
	assert.Empty(t, NormaliseIdentifiers([]string{" ", ""}))
}

func TestInPlaceFilter(t *testing.T) {
	values := []int{1, 2, 3, 4, 5, 6}
	InPlaceFilter(&values, func(v int) bool { return v%2 == 0 })

	assert.Equal(t, []int{2, 4, 6}, values)
}

func TestEnvironmentGetters(t *testing.T) {
	env := Environment{
		"STRING":   "value",
		"INT":      "42",
		"BADINT":   "forty",
		"FLOAT":    "52.3676",
		"BOOL_YES": "YES",
		"BOOL_OFF": "off",
		"BOOL_STD": "true",
		"DURATION": "1500ms",
	}

	assert.Equal(t, "value", env.String("STRING", "default"))
	assert.Equal(t, "default", env.String("MISSING", "default"))
	assert.Equal(t, 42, env.Int("INT", 1))
	assert.Equal(t, 1, env.Int("BADINT", 1))
	assert.InDelta(t, 52.3676, env.Float("FLOAT", 0), 0.00001)
	assert.True(t, env.Bool("BOOL_YES", false))
	assert.False(t, env.Bool("BOOL_OFF", true))
	assert.True(t, env.Bool("BOOL_STD", false))
	assert.True(t, env.Bool("MISSING", true))
	assert.Equal(t, 1500*time.Millisecond, env.Duration("DURATION", time.Second))
}

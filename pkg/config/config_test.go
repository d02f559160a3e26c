package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvHelpersFallBackToDefaults(t *testing.T) {
	assert.Equal(t, "fallback", getEnvString("MEDICHAT_TEST_UNSET", "fallback"))
	assert.Equal(t, 7, getEnvInt("MEDICHAT_TEST_UNSET", 7))
	assert.Equal(t, int64(1<<20), getEnvInt64("MEDICHAT_TEST_UNSET", 1<<20))
	assert.True(t, getEnvBool("MEDICHAT_TEST_UNSET", true))
	assert.Equal(t, time.Minute, getEnvDuration("MEDICHAT_TEST_UNSET", time.Minute))
	assert.Equal(t, []string{"*"}, getEnvStringSlice("MEDICHAT_TEST_UNSET", []string{"*"}))
}

func TestGetEnvHelpersReadEnvironment(t *testing.T) {
	t.Setenv("MEDICHAT_TEST_STR", "value")
	t.Setenv("MEDICHAT_TEST_INT", "42")
	t.Setenv("MEDICHAT_TEST_BOOL", "false")
	t.Setenv("MEDICHAT_TEST_DUR", "90s")
	t.Setenv("MEDICHAT_TEST_SLICE", "a,b,c")

	assert.Equal(t, "value", getEnvString("MEDICHAT_TEST_STR", "fallback"))
	assert.Equal(t, 42, getEnvInt("MEDICHAT_TEST_INT", 7))
	assert.False(t, getEnvBool("MEDICHAT_TEST_BOOL", true))
	assert.Equal(t, 90*time.Second, getEnvDuration("MEDICHAT_TEST_DUR", time.Minute))
	assert.Equal(t, []string{"a", "b", "c"}, getEnvStringSlice("MEDICHAT_TEST_SLICE", nil))
}

func TestGetEnvHelpersIgnoreMalformedValues(t *testing.T) {
	t.Setenv("MEDICHAT_TEST_BAD_INT", "not-a-number")
	t.Setenv("MEDICHAT_TEST_BAD_DUR", "soon")

	assert.Equal(t, 7, getEnvInt("MEDICHAT_TEST_BAD_INT", 7))
	assert.Equal(t, time.Minute, getEnvDuration("MEDICHAT_TEST_BAD_DUR", time.Minute))
}

func TestGetReturnsSingleton(t *testing.T) {
	first := Get()
	assert.NotNil(t, first)
	assert.Same(t, first, Get())
	assert.Same(t, first, New())
}

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonalitiesCommand(t *testing.T) {
	t.Setenv("FAIRY_CONFIG", "")
	t.Setenv("FAIRY_DEFAULT_PERSONALITY", "scholar")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"personalities"})
	require.NoError(t, rootCmd.Execute())

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 6)
	assert.Contains(t, string(lines[0]), "INTERRUPTS")
	assert.Regexp(t, `^empath\s+Empath\s+true\s+false$`, string(lines[3]))
	assert.Regexp(t, `^scholar\s+Scholar\s+false\s+true$`, string(lines[2]))
}

func TestFlagsOverrideConfig(t *testing.T) {
	t.Setenv("FAIRY_CONFIG", "")
	t.Setenv("FAIRY_DEFAULT_PERSONALITY", "")

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"personalities", "--time-scale", "3", "-p", "venting", "--seed", "9"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, 3.0, cfg.TimeScale)
	assert.Equal(t, "venting", cfg.Override)
	assert.Equal(t, uint64(9), cfg.Seed)
}

func TestInvalidTimeScale(t *testing.T) {
	t.Setenv("FAIRY_CONFIG", "")

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"personalities", "--time-scale", "0"})
	assert.Error(t, rootCmd.Execute())
}

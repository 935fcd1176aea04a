package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCalendarConvert(t *testing.T) {
	out, err := run(t, "calendar", "convert", "--to", "ethiopian", "2024-09-11")
	require.NoError(t, err)
	assert.Equal(t, "2017-01-01\n", out)
}

func TestCalendarConvert_UnknownCalendar(t *testing.T) {
	_, err := run(t, "calendar", "convert", "--from", "mayan", "2024-09-11")
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestCalendarConvert_BadDate(t *testing.T) {
	_, err := run(t, "calendar", "convert", "11/09/2024")
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestCalendarList(t *testing.T) {
	out, err := run(t, "calendar", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ethiopian  Ethiopian\n")
	assert.Contains(t, out, "iso8601    ISO 8601\n")
}

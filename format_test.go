package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTime(t *testing.T) {
	now := time.Now()
	sameYear := time.Date(now.Year(), time.March, 15, 10, 30, 0, 0, time.UTC)
	diffYear := time.Date(2020, time.December, 25, 8, 0, 0, 0, time.UTC)

	t.Run("same year", func(t *testing.T) {
		result := formatTime(sameYear)
		assert.Contains(t, result, "Mar")
		assert.Contains(t, result, "15")
		assert.Contains(t, result, "10:30")
	})

	t.Run("different year", func(t *testing.T) {
		result := formatTime(diffYear)
		assert.Contains(t, result, "Dec")
		assert.Contains(t, result, "25")
		assert.Contains(t, result, "2020")
	})
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	headers := []string{"NAME", "SIZE", "MODIFIED"}
	rows := [][]string{
		{"file.txt", "1.2 MB", "Jan 15 10:30"},
		{"folder/", "0 B", "Feb  1 09:00"},
	}

	printTable(&buf, headers, rows)
	output := buf.String()

	assert.Contains(t, output, "NAME")
	assert.Contains(t, output, "SIZE")
	assert.Contains(t, output, "MODIFIED")
	assert.Contains(t, output, "file.txt")
	assert.Contains(t, output, "folder/")

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "NAME      SIZE    MODIFIED", lines[0])
	assert.Equal(t, "file.txt  1.2 MB  Jan 15 10:30", lines[1])
}

func TestPrintJSON_Indented(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printJSON(&buf, messageOutput{Message: "ok"}))
	assert.Equal(t, "{\n  \"message\": \"ok\"\n}\n", buf.String())
}

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "json", false)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("pinned")
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "pinned", entry["msg"])
	require.Equal(t, "info", entry["level"])
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "console", true)
	require.NoError(t, err)

	logger.Debug("request")
	require.NoError(t, logger.Sync())
	require.Contains(t, buf.String(), "request")
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New(nil, "xml", false)
	require.ErrorContains(t, err, "unknown log format")
}

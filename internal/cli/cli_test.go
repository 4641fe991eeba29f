package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxtel/voxtel/pkg/voicesession"
)

func TestRootCommand(t *testing.T) {
	root := GetRootCmd()
	assert.Equal(t, "voxtel", root.Name())

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["replay"])
	assert.True(t, names["pricing"])
}

func TestRunReplay(t *testing.T) {
	dir := t.TempDir()

	configPath := filepath.Join(dir, "voxtel.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{
		"logging": {"level": "error", "console": false},
		"tracing": {"enabled": false}
	}`), 0600))

	capturePath := filepath.Join(dir, "capture.jsonl")
	capture := `{"type":"session_start","sessionId":"s1","userId":"u1","model":"gemini-2.0-flash-live"}
{"type":"turn_start","sessionId":"s1","timestamp":"2025-06-01T12:00:00Z","data":{"turnNumber":1,"userTranscript":"hi"}}
{"type":"turn_complete","sessionId":"s1","timestamp":"2025-06-01T12:00:01Z","data":{"turnNumber":1,"aiTranscript":"hello","durationMs":500}}
{"type":"session_end","sessionId":"s1","reason":"user_disconnect"}
`
	require.NoError(t, os.WriteFile(capturePath, []byte(capture), 0600))

	oldCfg := cfgFile
	cfgFile = configPath
	defer func() { cfgFile = oldCfg }()

	// Capture stdout to read the printed summary.
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	replayErr := runReplay(capturePath)

	w.Close()
	os.Stdout = oldStdout
	out, err := io.ReadAll(r)
	require.NoError(t, err)

	require.NoError(t, replayErr)

	var ended voicesession.Ended
	require.NoError(t, json.Unmarshal(out, &ended))
	assert.Equal(t, "s1", ended.TraceID)
	assert.Equal(t, 1, ended.Summary.TotalTurns)
	assert.Equal(t, 0, ended.Summary.TotalToolCalls)
	require.NotNil(t, ended.Summary.Cost)
	assert.Equal(t, "gemini-2.0-flash-live", ended.Summary.Cost.Model)
}

func TestRunReplay_MissingFile(t *testing.T) {
	oldCfg := cfgFile
	cfgFile = filepath.Join(t.TempDir(), "none.json")
	defer func() { cfgFile = oldCfg }()

	assert.Error(t, runReplay(filepath.Join(t.TempDir(), "nope.jsonl")))
}

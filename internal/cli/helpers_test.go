package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sumPairYAML = `name: sum_pair
channels:
  - { name: a, kind: send }
  - { name: b, kind: send }
  - { name: total, kind: recv }
patterns:
  - { name: add, when: [a, b, total], reaction: sum }
steps:
  - { op: send, channel: a, value: 2 }
  - { op: send, channel: b, value: 3 }
  - { op: recv, channel: total, expect: 5 }
expect:
  firings: 1
`

// writeScenario writes content to dir/file and returns the path.
func writeScenario(t *testing.T, dir, file, content string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args, isolated from the user's config.
func execute(t *testing.T, args ...string) (stdout string, stderr string, err error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// decodeResponse parses a JSON CLI response, re-decoding Data into data.
func decodeResponse(t *testing.T, raw string, data any) CLIResponse {
	t.Helper()
	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &response))
	if data != nil && response.Data != nil {
		b, err := json.Marshal(response.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, data))
	}
	return response
}

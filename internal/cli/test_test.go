package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	_, _, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyDirJSON(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir(), "--format", "json")
	require.NoError(t, err)

	var result TestResult
	response := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, 0, result.Total)
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "sum_pair.yaml", sumPairYAML)
	golden := filepath.Join(dir, "golden", "sum_pair.golden")

	out, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ sum_pair")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name": "sum_pair"`)

	// The golden file written by --update is what a plain run produces.
	_, _, err = execute(t, "test", dir)
	require.NoError(t, err)

	tampered := strings.Replace(string(data), `"reply": 5`, `"reply": 7`, 1)
	require.NoError(t, os.WriteFile(golden, []byte(tampered), 0644))

	out, _, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ sum_pair")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandWithoutGolden(t *testing.T) {
	// No golden directory here: scenarios are judged on their expectations alone.
	out, _, err := execute(t, "test", filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestTestCommandFailureCounts(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "good.yaml", sumPairYAML)
	writeScenario(t, dir, "bad.yaml", strings.Replace(
		strings.Replace(sumPairYAML, "name: sum_pair", "name: bad", 1),
		"expect: 5", "expect: 9", 1))
	writeScenario(t, dir, "notes.txt", "ignored")

	out, _, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 scenario(s) failed")

	var result TestResult
	response := decodeResponse(t, out, &result)
	assert.Equal(t, "error", response.Status)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)

	for _, s := range result.Scenarios {
		if s.Name == "bad" {
			assert.False(t, s.Pass)
			require.Len(t, s.Errors, 1)
			assert.Contains(t, s.Errors[0], "expected reply 9, got reply 5")
		}
	}
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "sum_pair.yaml", sumPairYAML)
	writeScenario(t, dir, "broken.yaml", "name: [")

	out, _, err := execute(t, "test", dir, "--filter", "sum*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandLoadFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: [")

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", "")
	writeScenario(t, dir, "b.yml", "")
	writeScenario(t, dir, "c.cue", "")
	writeScenario(t, dir, "d.json", "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	writeScenario(t, filepath.Join(dir, "golden"), "x.yaml", "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	writeScenario(t, filepath.Join(dir, "nested"), "e.yaml", "")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(dir, "c.cue"),
		filepath.Join(dir, "nested", "e.yaml"),
	}, files)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "cell.golden"), goldenFilePath(filepath.Join("s", "cell.cue")))
	assert.Equal(t, filepath.Join("golden", "x.golden"), goldenFilePath("x.yaml"))
}

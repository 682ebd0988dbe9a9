package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgconform/internal/cli"
	"imgconform/internal/config"
	"imgconform/internal/service"
	"imgconform/internal/service/servicetest"
)

func TestMain(m *testing.M) {
	if servicetest.IsHelper() {
		servicetest.Main()
	}
	color.NoColor = true
	os.Exit(m.Run())
}

const sampleImage = "GIF89a-sample-pixels"

// newHarness lays out a harness root with one asset and the given files
// under cases/
func newHarness(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cases"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "test_images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "test_images", "sample.gif"), []byte(sampleImage), 0o644))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, "cases", name), []byte(body), 0o644))
	}
	return root
}

// execute runs the command line against the fake service in mode and
// returns the exit status and command output
func execute(t *testing.T, mode, root string, args ...string) (int, string) {
	t.Helper()
	opts := servicetest.Stdio(t, mode)
	var out bytes.Buffer
	cmd := newRoot("test", &out, func(*config.Config) service.Options { return opts })
	cmd.SetArgs(append([]string{"--root", root}, args...))
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return cli.GetExitCode(err), out.String()
}

var mixedCases = map[string]string{
	"crop.json":   `{"file": "sample.gif", "fake": "reverse"}`,
	"crop.out":    sampleImage,
	"rotate.json": `{"file": "sample.gif", "actions": [{"rotate": 90}]}`,
	"rotate.out":  sampleImage,
}

func TestRun_AllPass(t *testing.T) {
	root := newHarness(t, map[string]string{
		"rotate.json": `{"file": "sample.gif"}`,
		"rotate.out":  sampleImage,
	})

	code, out := execute(t, servicetest.ModeNormal, root, "run")
	assert.Equal(t, cli.ExitSuccess, code, out)
	assert.Contains(t, out, "rotate: ok. (20x40 -> 10x20 took")
	assert.Contains(t, out, "1/1 tests completed successfully")

	assert.FileExists(t, filepath.Join(root, "storage", "last-run.json"))
	assert.FileExists(t, filepath.Join(root, "storage", "history.db"))
}

func TestRun_FailureExitsOne(t *testing.T) {
	root := newHarness(t, mixedCases)

	code, out := execute(t, servicetest.ModeNormal, root, "run")
	assert.Equal(t, cli.ExitFailure, code)
	assert.Contains(t, out, "crop: fail (output mismatch")
	assert.Contains(t, out, "1/2 tests completed successfully")
	assert.FileExists(t, filepath.Join(root, "cases", "crop.got"))
}

func TestRun_OnlyFailedRerunsLastFailures(t *testing.T) {
	root := newHarness(t, mixedCases)

	code, _ := execute(t, servicetest.ModeNormal, root, "run")
	require.Equal(t, cli.ExitFailure, code)

	code, out := execute(t, servicetest.ModeNormal, root, "run", "--failed")
	assert.Equal(t, cli.ExitFailure, code)
	assert.Contains(t, out, "crop: fail")
	assert.NotContains(t, out, "rotate")
	assert.Contains(t, out, "0/1 tests completed successfully")
}

func TestRun_OnlyFailedWithoutPreviousRun(t *testing.T) {
	root := newHarness(t, mixedCases)

	code, _ := execute(t, servicetest.ModeNormal, root, "run", "--failed")
	assert.Equal(t, cli.ExitCommandError, code)
}

func TestRun_ServiceUnavailableExitsTwo(t *testing.T) {
	root := newHarness(t, mixedCases)

	code, out := execute(t, servicetest.ModeDead, root, "run")
	assert.Equal(t, cli.ExitCommandError, code)
	assert.NotContains(t, out, "tests completed")
	assert.NoFileExists(t, filepath.Join(root, "storage", "last-run.json"))
}

func TestRun_EmptySelection(t *testing.T) {
	root := newHarness(t, mixedCases)

	code, out := execute(t, servicetest.ModeNormal, root, "run", "-t", "nothing-matches")
	assert.Equal(t, cli.ExitFailure, code)
	assert.Contains(t, out, "No test cases selected")

	code, _ = execute(t, servicetest.ModeNormal, root, "run", "-t", "nothing-matches", "--allow-empty")
	assert.Equal(t, cli.ExitSuccess, code)
}

func TestRun_FilterSelectsByName(t *testing.T) {
	root := newHarness(t, mixedCases)

	code, out := execute(t, servicetest.ModeNormal, root, "run", "-t", "rot")
	assert.Equal(t, cli.ExitSuccess, code, out)
	assert.NotContains(t, out, "crop")
}

func TestRun_LoadOnly(t *testing.T) {
	root := newHarness(t, mixedCases)

	code, out := execute(t, servicetest.ModeNormal, root, "run", "--load-only")
	assert.Equal(t, cli.ExitSuccess, code, out)
	assert.Contains(t, out, "Service started and stopped cleanly")
	assert.Contains(t, out, "name: ImageAlter")
	assert.NoFileExists(t, filepath.Join(root, "storage", "last-run.json"))
}

func TestRun_MetricsTextfile(t *testing.T) {
	root := newHarness(t, mixedCases)
	require.NoError(t, os.WriteFile(filepath.Join(root, "imgconform.yaml"),
		[]byte("metrics:\n  textfile: metrics/imgconform.prom\nhistory:\n  enabled: false\n"), 0o644))

	code, _ := execute(t, servicetest.ModeNormal, root, "run")
	require.Equal(t, cli.ExitFailure, code)

	prom, err := os.ReadFile(filepath.Join(root, "metrics", "imgconform.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `imgconform_cases_total{status="pass"} 1`)
	assert.Contains(t, string(prom), `imgconform_cases_total{status="fail"} 1`)
	assert.NoFileExists(t, filepath.Join(root, "storage", "history.db"))
}

func TestList_MarksFailedCases(t *testing.T) {
	root := newHarness(t, mixedCases)

	code, _ := execute(t, servicetest.ModeNormal, root, "run")
	require.Equal(t, cli.ExitFailure, code)

	code, out := execute(t, servicetest.ModeNormal, root, "list")
	assert.Equal(t, cli.ExitSuccess, code)
	assert.Contains(t, out, "Found 2 case(s):")
	assert.Contains(t, out, "crop.json [F]")
	assert.NotContains(t, out, "rotate.json [F]")
}

func TestList_MissingCasesDir(t *testing.T) {
	code, _ := execute(t, servicetest.ModeNormal, t.TempDir(), "list")
	assert.Equal(t, cli.ExitCommandError, code)
}

func TestFailures_Stats(t *testing.T) {
	root := newHarness(t, mixedCases)

	code, _ := execute(t, servicetest.ModeNormal, root, "run")
	require.Equal(t, cli.ExitFailure, code)

	code, out := execute(t, servicetest.ModeNormal, root, "failures", "--stats")
	assert.Equal(t, cli.ExitSuccess, code)
	assert.Contains(t, out, "crop")
	assert.Contains(t, out, "mismatch")
}

func TestHistory_ListsRunsAndFlips(t *testing.T) {
	root := newHarness(t, map[string]string{
		"crop.json": `{"file": "sample.gif"}`,
		"crop.out":  sampleImage,
	})

	code, _ := execute(t, servicetest.ModeNormal, root, "run")
	require.Equal(t, cli.ExitSuccess, code)

	require.NoError(t, os.WriteFile(filepath.Join(root, "cases", "crop.out"), []byte("changed"), 0o644))
	code, _ = execute(t, servicetest.ModeNormal, root, "run")
	require.Equal(t, cli.ExitFailure, code)

	code, out := execute(t, servicetest.ModeNormal, root, "history", "-n", "5")
	assert.Equal(t, cli.ExitSuccess, code, out)
	assert.Contains(t, out, "1/1")
	assert.Contains(t, out, "0/1")
	assert.Contains(t, out, "crop")
}

func TestConfig_PrintsEffectiveConfig(t *testing.T) {
	root := newHarness(t, nil)

	code, out := execute(t, servicetest.ModeNormal, root, "run", "--locator", "ftp")
	assert.Equal(t, cli.ExitCommandError, code, out)

	code, out = execute(t, servicetest.ModeNormal, root, "config")
	assert.Equal(t, cli.ExitSuccess, code)
	assert.Contains(t, out, "transport: stdio")
	assert.Contains(t, out, "cases_dir: cases")
	assert.Contains(t, out, "startup_timeout: 10s")
}

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/literaryfinder/config"
	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/engine"
	"github.com/hupe1980/literaryfinder/internal/testutil"
	"github.com/hupe1980/literaryfinder/logging"
)

// setup isolates the environment and swaps the real workers for fakes.
func setup(t *testing.T, fakes ...*testutil.FakeWorker) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("LITERARYFINDER_LOGGING_LEVEL", "error")

	if len(fakes) == 0 {
		fakes = []*testutil.FakeWorker{
			testutil.NewFakeWorker(core.RoleHistorian),
			testutil.NewFakeWorker(core.RoleCartographer),
			testutil.NewFakeWorker(core.RoleConnector),
		}
	}
	orig := buildWorkers
	buildWorkers = func(*config.Config, logging.Logger) []core.Worker {
		out := make([]core.Worker, len(fakes))
		for i, f := range fakes {
			out[i] = f
		}
		return out
	}
	t.Cleanup(func() { buildWorkers = orig })
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestAnalyze_Markdown(t *testing.T) {
	setup(t)

	stdout, stderr, err := run(t, "analyze", "Toni", "Morrison")
	require.NoError(t, err, stderr)

	assert.Contains(t, stdout, "# The Literary Finder: Toni Morrison")
	assert.Contains(t, stdout, "Success Rate")
	assert.Contains(t, stderr, "✓ historian finished")
	assert.Contains(t, stderr, "completed in")
}

func TestAnalyze_ParallelProgressLinesAreWhole(t *testing.T) {
	fakes := []*testutil.FakeWorker{
		testutil.NewFakeWorker(core.RoleHistorian),
		testutil.NewFakeWorker(core.RoleCartographer),
		testutil.NewFakeWorker(core.RoleConnector),
	}
	for _, f := range fakes {
		f.Delay = 20 * time.Millisecond
	}
	setup(t, fakes...)

	_, stderr, err := run(t, "analyze", "Toni Morrison")
	require.NoError(t, err, stderr)

	line := regexp.MustCompile(`(?m)^✓ (historian|cartographer|connector) finished in \S+$`)
	assert.Len(t, line.FindAllString(stderr, -1), 3, stderr)
}

func TestPrintWorker_ConcurrentWritersDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	w := newSyncWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		role := core.Roles[i%len(core.Roles)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			printWorker(w, &engine.CallbackContext{
				Role: role, Status: core.StatusFailed, Latency: time.Second, Err: errors.New("quota exceeded"),
			})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 50)
	for _, l := range lines {
		assert.Regexp(t, `^⚠️  (historian|cartographer|connector) failed after 1s: quota exceeded$`, l)
	}
}

func TestAnalyze_JSONSequential(t *testing.T) {
	hist := testutil.NewFakeWorker(core.RoleHistorian)
	carto := testutil.NewFakeWorker(core.RoleCartographer)
	conn := testutil.NewFakeWorker(core.RoleConnector)
	setup(t, hist, carto, conn)

	stdout, _, err := run(t, "analyze", "Toni Morrison", "--mode", "sequential", "--format", "json", "--selector", "model=gpt-4o", "--no-eval", "-q")
	require.NoError(t, err)

	var resp engine.Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, core.ModeSequential, resp.Mode)
	assert.Nil(t, resp.PerformanceReport)
	assert.Equal(t, 3, resp.Slots.Succeeded())

	task := conn.LastTask.Load()
	require.NotNil(t, task)
	assert.Equal(t, "gpt-4o", task.Selector("model", ""))
	assert.Len(t, task.Prior, 2)
}

func TestAnalyze_YAML(t *testing.T) {
	setup(t)

	stdout, _, err := run(t, "analyze", "Toni Morrison", "-f", "yaml", "-q")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, true, doc["success"])
	assert.Equal(t, "Toni Morrison", doc["subject"])
}

func TestAnalyze_PartialFailureStillSucceeds(t *testing.T) {
	carto := testutil.NewFakeWorker(core.RoleCartographer)
	carto.Err = errors.New("catalog search: quota exceeded")
	setup(t, testutil.NewFakeWorker(core.RoleHistorian), carto, testutil.NewFakeWorker(core.RoleConnector))

	stdout, stderr, err := run(t, "analyze", "Toni Morrison")
	require.NoError(t, err)
	assert.Contains(t, stdout, "_Data unavailable: cartographer: catalog search: quota exceeded_")
	assert.Contains(t, stderr, "cartographer failed")
}

func TestAnalyze_AllWorkersFail(t *testing.T) {
	fakes := []*testutil.FakeWorker{
		testutil.NewFakeWorker(core.RoleHistorian),
		testutil.NewFakeWorker(core.RoleCartographer),
		testutil.NewFakeWorker(core.RoleConnector),
	}
	for _, f := range fakes {
		f.Err = errors.New("offline")
	}
	setup(t, fakes...)

	stdout, stderr, err := run(t, "analyze", "Toni Morrison")
	require.Error(t, err)
	assert.Equal(t, `analysis of "Toni Morrison" failed`, err.Error())
	assert.Contains(t, stdout, "No report for \"Toni Morrison\"")
	assert.Contains(t, stderr, "synthesis failed: all 3 workers failed, no content available")
}

func TestAnalyze_MissingCredentials(t *testing.T) {
	setup(t)
	t.Setenv("OPENAI_API_KEY", "")

	_, stderr, err := run(t, "analyze", "Toni Morrison")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY is not set")
	assert.Contains(t, stderr, "Export the provider API key")
}

func TestAnalyze_InvalidFlags(t *testing.T) {
	setup(t)

	_, _, err := run(t, "analyze", "Toni Morrison", "--mode", "batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown execution mode "batch"`)

	_, _, err = run(t, "analyze", "Toni Morrison", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "xml"`)

	_, _, err = run(t, "analyze")
	require.Error(t, err)
}

func TestAnalyzeThenShow_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	setup(t)
	t.Setenv("LITERARYFINDER_ARCHIVE_BACKEND", "redis")
	t.Setenv("LITERARYFINDER_ARCHIVE_REDIS_ADDR", mr.Addr())

	stdout, _, err := run(t, "analyze", "Toni Morrison", "--format", "json", "-q")
	require.NoError(t, err)
	var analyzed engine.Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &analyzed))

	stdout, _, err = run(t, "show", analyzed.RequestID, "--format", "json")
	require.NoError(t, err)
	var shown engine.Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &shown))
	assert.Equal(t, analyzed.RequestID, shown.RequestID)
	require.NotNil(t, shown.FinalReport)
	assert.Equal(t, *analyzed.FinalReport, *shown.FinalReport)

	stdout, _, err = run(t, "show", "--subject", "toni morrison")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 archived analyses")
	assert.Contains(t, stdout, analyzed.RequestID)

	_, _, err = run(t, "show", "missing-id")
	require.Error(t, err)
	assert.Equal(t, "no archived analysis missing-id", err.Error())
}

func TestAnalyze_UnreachableRedisDisablesArchive(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	setup(t)
	t.Setenv("LITERARYFINDER_ARCHIVE_BACKEND", "redis")
	t.Setenv("LITERARYFINDER_ARCHIVE_REDIS_ADDR", addr)

	stdout, stderr, err := run(t, "analyze", "Toni Morrison")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# The Literary Finder: Toni Morrison")
	assert.Contains(t, stderr, "archive disabled")
}

func TestShow_RequiresRedisBackend(t *testing.T) {
	setup(t)

	_, _, err := run(t, "show", "req-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `archive backend "none"`)

	_, _, err = run(t, "show")
	require.Error(t, err)
	assert.Equal(t, "a request id or --subject is required", err.Error())
}

func TestWriteResponse_FailedResponse(t *testing.T) {
	var buf bytes.Buffer
	resp := &engine.Response{
		Subject: "",
		Errors:  []string{"subject is required and cannot be empty"},
		Phase:   engine.PhaseFailed,
	}
	require.NoError(t, writeResponse(&buf, resp, formatMarkdown))
	assert.Equal(t, "No report for \"\".\n- subject is required and cannot be empty\n", buf.String())
}

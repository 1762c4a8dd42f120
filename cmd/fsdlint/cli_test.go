package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fsdlint/internal/config"
	"fsdlint/internal/history"
	"fsdlint/internal/project"
	"fsdlint/internal/report"
	"fsdlint/internal/rules"
)

// newTestCmd returns a bare command with captured output, the way the
// RunE functions are driven directly in tests.
func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return cmd, buf
}

// resetFlags restores the package-level flag globals after a test.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		verbose = false
		configPath = ""
		outputFormat = ""
		severityThreshold = ""
		watchMode = false
		recordHistory = false
		noHistory = false
		graphFormat = "dot"
		graphOut = ""
		trendLimit = 10
	})
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

// fixtureTree builds a small project with exactly one cross-slice
// violation: features/cart imports its sibling features/auth.
func fixtureTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"shared/ui/index.ts":             "export {};",
		"entities/user/index.ts":         "export * from './model/store';",
		"entities/user/model/store.ts":   "import '../../../shared/ui';\nexport const store = 1;",
		"features/auth/index.ts":         "export * from './ui/LoginForm';",
		"features/auth/ui/LoginForm.tsx": "import { store } from '../../../entities/user';\nexport const LoginForm = () => null;",
		"features/cart/index.ts":         "import { LoginForm } from '../auth';\nexport {};",
	})
	return root
}

// cleanTree builds a project with no violations at all.
func cleanTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"shared/ui/index.ts":           "export {};",
		"entities/user/index.ts":       "export * from './model/store';",
		"entities/user/model/store.ts": "import '../../../shared/ui';\nexport const store = 1;",
	})
	return root
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var exit *ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, code, exit.Code)
}

func TestRunCheckFindsViolations(t *testing.T) {
	resetFlags(t)
	root := fixtureTree(t)
	cmd, buf := newTestCmd()

	err := runCheck(cmd, []string{root})
	requireExitCode(t, err, 1)

	out := buf.String()
	assert.Contains(t, out, "features/cart/index.ts")
	assert.Contains(t, out, "cross-slice")
	assert.Contains(t, out, "1 problem")
}

func TestRunCheckCleanTree(t *testing.T) {
	resetFlags(t)
	root := cleanTree(t)
	cmd, buf := newTestCmd()

	err := runCheck(cmd, []string{root})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no violations found")
}

func TestRunCheckJSONFormat(t *testing.T) {
	resetFlags(t)
	outputFormat = "json"
	root := fixtureTree(t)
	cmd, buf := newTestCmd()

	err := runCheck(cmd, []string{root})
	requireExitCode(t, err, 1)

	var rep report.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
	require.Len(t, rep.Violations, 1)
	assert.Equal(t, rules.RuleCrossSlice, rep.Violations[0].Rule)
	assert.Equal(t, "features/cart/index.ts", rep.Violations[0].File)
	assert.Equal(t, 1, rep.Summary.Errors)
	assert.Equal(t, 6, rep.Summary.Modules)
}

func TestRunCheckSeverityThreshold(t *testing.T) {
	resetFlags(t)
	root := t.TempDir()
	// Only a deep import, which is warning severity by default.
	writeTree(t, root, map[string]string{
		"shared/ui/index.ts":           "export {};",
		"entities/user/index.ts":       "export * from './model/store';",
		"entities/user/model/store.ts": "export const store = 1;",
		"features/auth/index.ts":       "import { store } from '../../entities/user/model/store';\nexport {};",
	})

	cmd, buf := newTestCmd()
	err := runCheck(cmd, []string{root})
	require.NoError(t, err, "warnings must not fail the default threshold")
	assert.Contains(t, buf.String(), "deep-import")

	severityThreshold = "warning"
	cmd, _ = newTestCmd()
	err = runCheck(cmd, []string{root})
	requireExitCode(t, err, 1)
}

func TestRunCheckInvalidThreshold(t *testing.T) {
	resetFlags(t)
	severityThreshold = "fatal"
	cmd, _ := newTestCmd()

	err := runCheck(cmd, []string{cleanTree(t)})
	requireExitCode(t, err, 2)
}

func TestRunCheckMissingRoot(t *testing.T) {
	resetFlags(t)
	cmd, _ := newTestCmd()

	err := runCheck(cmd, []string{filepath.Join(t.TempDir(), "missing")})
	requireExitCode(t, err, 2)
}

func TestRunCheckBrokenConfig(t *testing.T) {
	resetFlags(t)
	bad := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("root: [not, a, string]\n"), 0644))
	configPath = bad
	cmd, _ := newTestCmd()

	err := runCheck(cmd, nil)
	requireExitCode(t, err, 2)
}

func TestRunCheckRecordsHistory(t *testing.T) {
	resetFlags(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	t.Setenv("FSDLINT_HISTORY_DB", dbPath)
	recordHistory = true

	root := cleanTree(t)
	cmd, _ := newTestCmd()
	require.NoError(t, runCheck(cmd, []string{root}))

	store, err := history.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.Recent(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Modules)
	assert.Equal(t, 0, runs[0].Errors)
}

func TestRunCheckNoHistoryWins(t *testing.T) {
	resetFlags(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	t.Setenv("FSDLINT_HISTORY_DB", dbPath)
	recordHistory = true
	noHistory = true

	cmd, _ := newTestCmd()
	require.NoError(t, runCheck(cmd, []string{cleanTree(t)}))

	_, err := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err), "no-history must suppress the store entirely")
}

func TestRunInitConfig(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), ".fsdlint.yaml")
	configPath = path
	cmd, buf := newTestCmd()

	require.NoError(t, runInitConfig(cmd, nil))
	assert.Contains(t, buf.String(), path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./src", cfg.Root)

	// A second init must refuse to clobber the file.
	err = runInitConfig(cmd, nil)
	requireExitCode(t, err, 2)
}

func TestRunTrend(t *testing.T) {
	resetFlags(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	t.Setenv("FSDLINT_HISTORY_DB", dbPath)

	cmd, buf := newTestCmd()
	require.NoError(t, runTrend(cmd, nil))
	assert.Contains(t, buf.String(), "no recorded runs")

	store, err := history.Open(dbPath)
	require.NoError(t, err)
	_, err = store.Record(history.Run{Root: "src-a", Modules: 12, Edges: 30, Errors: 2, Warnings: 1})
	require.NoError(t, err)
	_, err = store.Record(history.Run{Root: "src-b", Modules: 14, Edges: 31})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	cmd, buf = newTestCmd()
	require.NoError(t, runTrend(cmd, nil))
	out := buf.String()
	assert.Contains(t, out, "MODULES")
	assert.Contains(t, out, "src-a")
	assert.Contains(t, out, "src-b")
}

func TestRunGraphDOT(t *testing.T) {
	resetFlags(t)
	root := fixtureTree(t)
	cmd, buf := newTestCmd()

	require.NoError(t, runGraph(cmd, []string{root}))
	out := buf.String()
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "cluster_features")
	assert.Contains(t, out, `"features/cart"`)
	assert.Contains(t, out, `"features/auth"`)
	assert.Contains(t, out, "red", "the cross-slice edge must be highlighted")
}

func TestRunGraphJSONToFile(t *testing.T) {
	resetFlags(t)
	root := fixtureTree(t)
	graphFormat = "json"
	graphOut = filepath.Join(t.TempDir(), "graph.json")
	cmd, _ := newTestCmd()

	require.NoError(t, runGraph(cmd, []string{root}))

	data, err := os.ReadFile(graphOut)
	require.NoError(t, err)
	var g project.Graph
	require.NoError(t, json.Unmarshal(data, &g))
	assert.Len(t, g.Modules, 6)
	assert.NotEmpty(t, g.Imports)
}

func TestRunGraphUnknownFormat(t *testing.T) {
	resetFlags(t)
	graphFormat = "webp"
	cmd, _ := newTestCmd()

	err := runGraph(cmd, []string{cleanTree(t)})
	requireExitCode(t, err, 2)
}

func TestExitError(t *testing.T) {
	boom := errors.New("boom")
	assert.Equal(t, "boom", (&ExitError{Code: 2, Err: boom}).Error())
	assert.Equal(t, "exit status 1", (&ExitError{Code: 1}).Error())
	assert.ErrorIs(t, &ExitError{Code: 2, Err: boom}, boom)
}

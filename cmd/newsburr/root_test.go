package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/FranksOps/newsburr/internal/config"
	"github.com/FranksOps/newsburr/internal/output"
)

const okResponse = `{
  "id": "resp_1",
  "model": "gpt-5-nano",
  "status": "completed",
  "output": [
    {"type": "web_search_call"},
    {"type": "message", "content": [{"type": "output_text", "text": "Here you go: https://www.nrk.no/trondelag/good-news-1.17000000"}]}
  ],
  "usage": {"input_tokens": 120, "output_tokens": 40, "total_tokens": 160}
}`

// resetFlags undoes flag values left behind by an earlier execute call.
func resetFlags() {
	for _, fs := range []*pflag.FlagSet{rootCMD.PersistentFlags(), rootCMD.Flags(), reportCMD.Flags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCMD.SetOut(&out)
	rootCMD.SetErr(&out)
	rootCMD.SetArgs(args)
	err := Execute(context.Background())
	return out.String(), err
}

func readLatest(t *testing.T, dir string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, output.LatestFile))
	require.NoError(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal(data, &res))
	return res
}

func TestRoot_Search(t *testing.T) {
	var (
		mu      sync.Mutex
		gotPath string
		gotAuth string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okResponse))
	}))
	defer srv.Close()

	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "newsburr.prom")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	_, err := execute(t,
		"--base-url", srv.URL,
		"--output-dir", dir,
		"--variant", "positive",
		"--history-backend", "jsonl",
		"--metrics-file", metricsFile,
	)
	require.NoError(t, err)
	mu.Lock()
	require.Equal(t, "/v1/responses", gotPath)
	require.Equal(t, "Bearer sk-test", gotAuth)
	require.Equal(t, "gpt-5-nano", gotBody["model"])
	mu.Unlock()

	latest := readLatest(t, dir)
	require.Equal(t, "success", latest["status"])
	require.Equal(t, []any{"https://www.nrk.no/trondelag/good-news-1.17000000"}, latest["news_urls"])

	matches, err := filepath.Glob(filepath.Join(dir, "news_results_2*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	require.FileExists(t, filepath.Join(dir, "news_history.jsonl"))

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	require.Contains(t, string(prom), "newsburr_runs_total")

	out, err := execute(t, "report", "--output-dir", dir, "--history-backend", "jsonl", "--format", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"TotalRuns": 1`)
	require.Contains(t, out, `"nrk.no": 1`)
}

func TestRoot_MissingAPIKeyWritesErrorRecord(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	_, err := execute(t,
		"--base-url", srv.URL,
		"--output-dir", dir,
		"--history-backend", "none",
		"--metrics-file", "",
	)
	require.ErrorIs(t, err, config.ErrMissingAPIKey)
	require.Zero(t, calls.Load())

	latest := readLatest(t, dir)
	require.Equal(t, "error", latest["status"])
	require.Equal(t, config.ErrMissingAPIKey.Error(), latest["error"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRoot_RejectsArgs(t *testing.T) {
	_, err := execute(t, "extra")
	require.Error(t, err)
}

func TestReport_NeedsHistory(t *testing.T) {
	_, err := execute(t, "report", "--history-backend", "none")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "history backend"))
}

func TestRoot_SettingsErrorsWriteErrorRecord(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown variant", args: []string{"--variant", "sports"}, wantErr: `unknown variant "sports"`},
		{name: "zero retries", args: []string{"--max-retries", "0"}, wantErr: "max-retries"},
		{name: "bad timeout", args: []string{"--timeout", "soon"}, wantErr: "timeout"},
		{name: "bad history backend", args: []string{"--history-backend", "mongodb"}, wantErr: "history-backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("OPENAI_API_KEY", "sk-test")
			t.Setenv("HOME", t.TempDir())
			t.Chdir(t.TempDir())

			latestPath := filepath.Join(dir, output.LatestFile)
			require.NoError(t, os.WriteFile(latestPath, []byte(`{"status":"success"}`), 0o644))

			args := append([]string{"--output-dir", dir}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)

			latest := readLatest(t, dir)
			require.Equal(t, "error", latest["status"])
			require.Equal(t, err.Error(), latest["error"])
			require.Equal(t, "gpt-5-nano", latest["model_used"])
		})
	}
}

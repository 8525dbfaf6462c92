package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/stopka/internal/config"
	serrors "github.com/hpungsan/stopka/internal/errors"
	"github.com/hpungsan/stopka/internal/ops"
)

// fakeAsana serves a two-task project and records attachment uploads.
type fakeAsana struct {
	mu      sync.Mutex
	uploads map[string]string
}

func (f *fakeAsana) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errors": [{"message": "Not Authorized"}]}`)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/projects/p1/tasks":
		fmt.Fprint(w, `{"data": [{"gid": "11", "completed": false}, {"gid": "12", "completed": true}, {"gid": "13", "completed": false}], "next_page": null}`)
	case r.Method == http.MethodGet && r.URL.Path == "/tasks/11":
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"gid": "11", "name": "STOPKA Anna", "notes": "Anna Nowak\nWarszawa\nMazowieckie\n123 456 789\nno",
			"created_by": map[string]any{"gid": "7"},
		}})
	case r.Method == http.MethodGet && r.URL.Path == "/tasks/13":
		fmt.Fprint(w, `{"data": {"gid": "13", "name": "Something else", "notes": "", "created_by": {"gid": "7"}}}`)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/attachments"):
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.uploads[r.URL.Path] = r.MultipartForm.File["file"][0].Filename
		f.mu.Unlock()
		fmt.Fprint(w, `{"data": {"gid": "att"}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors": [{"message": "unknown route"}]}`)
	}
}

func setupEnv(t *testing.T) (string, *fakeAsana) {
	t.Helper()
	fake := &fakeAsana{uploads: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	t.Setenv(config.EnvAccessToken, "test-token")
	t.Setenv(config.EnvProjectID, "p1")
	t.Setenv(config.EnvAPIBaseURL, srv.URL)

	return t.TempDir(), fake
}

// runCLI runs the app with args and returns stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	app := newCLIApp(zap.NewNop())
	app.Writer = &stdout
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"stopka"}, args...))
	return stdout.String(), err
}

func TestCLI_Parse(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, "Anna Nowak\nWarszawa\nMazowieckie\n123 456 789\nno\n", "--dir", dir, "parse")
	require.NoError(t, err)

	var got ops.InspectOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, "Anna", got.Record.FirstName)
	require.Equal(t, "no", got.Record.PhotoFlag)
	require.Equal(t, "anna.nowak", got.Derived.LoginHandle)
	require.Equal(t, "without_photo", got.Template)
}

func TestCLI_Run(t *testing.T) {
	for _, backend := range []string{config.StoreFile, config.StoreSQLite} {
		t.Run(backend, func(t *testing.T) {
			dir, fake := setupEnv(t)

			out, err := runCLI(t, "", "--dir", dir, "--store", backend, "run")
			require.NoError(t, err)

			var got RunOutput
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			require.Equal(t, 3, got.Fetch.Listed)
			require.Equal(t, []string{"11"}, got.Fetch.Written)
			require.Len(t, got.Render.Rendered, 1)
			require.True(t, got.Render.Rendered[0].Uploaded)
			require.Empty(t, got.Render.Failures)

			html, err := os.ReadFile(filepath.Join(dir, "generated", "AnnaNowak.html"))
			require.NoError(t, err)
			require.Contains(t, string(html), "anna.nowak@example.com")

			require.Equal(t, "AnnaNowak.html", fake.uploads["/tasks/11/attachments"])

			// list and show see the same snapshot
			out, err = runCLI(t, "", "--dir", dir, "--store", backend, "list")
			require.NoError(t, err)
			var list ops.ListOutput
			require.NoError(t, json.Unmarshal([]byte(out), &list))
			require.Equal(t, []string{"11"}, list.Keys)

			out, err = runCLI(t, "", "--dir", dir, "--store", backend, "show", "11")
			require.NoError(t, err)
			var shown ops.InspectOutput
			require.NoError(t, json.Unmarshal([]byte(out), &shown))
			require.Equal(t, "7", shown.Record.CreatorID)
		})
	}
}

func TestCLI_FetchThenRenderWithoutUpload(t *testing.T) {
	dir, fake := setupEnv(t)

	_, err := runCLI(t, "", "--dir", dir, "fetch")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "json", "task_11.json"))

	out, err := runCLI(t, "", "--dir", dir, "render", "--no-upload")
	require.NoError(t, err)

	var got ops.RenderOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Rendered, 1)
	require.False(t, got.Rendered[0].Uploaded)
	require.Empty(t, fake.uploads)
}

func TestCLI_FetchRequiresToken(t *testing.T) {
	dir, _ := setupEnv(t)
	t.Setenv(config.EnvAccessToken, "")

	_, err := runCLI(t, "", "--dir", dir, "fetch")
	require.Error(t, err)
	require.Contains(t, err.Error(), "[INVALID_REQUEST] ACCESS_TOKEN is not set")
}

func TestCLI_FetchBadToken(t *testing.T) {
	dir, _ := setupEnv(t)
	t.Setenv(config.EnvAccessToken, "wrong")

	_, err := runCLI(t, "", "--dir", dir, "fetch")
	require.Error(t, err)
	require.Contains(t, err.Error(), "[UPSTREAM]")
	require.Contains(t, err.Error(), "Not Authorized")
}

func TestCLI_ShowMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, "", "--dir", dir, "show", "404")
	require.Error(t, err)
	require.Contains(t, err.Error(), "[NOT_FOUND]")

	_, err = runCLI(t, "", "--dir", dir, "show")
	require.Error(t, err)
	require.Contains(t, err.Error(), "[INVALID_REQUEST]")
}

func TestCLI_UnknownStore(t *testing.T) {
	_, err := runCLI(t, "", "--dir", t.TempDir(), "--store", "redis", "list")
	require.Error(t, err)
	require.Contains(t, err.Error(), "store must be one of")
}

func TestCLI_ProjectFlagOverridesEnv(t *testing.T) {
	dir, _ := setupEnv(t)

	_, err := runCLI(t, "", "--dir", dir, "fetch", "--project", "unknown")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown route")
}

func TestOutputError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"coded", serrors.NewNotFound("1201"), "[NOT_FOUND] snapshot not found: 1201"},
		{"wrapped coded", fmt.Errorf("show: %w", serrors.NewCorruptData("7", "bad json")), "[CORRUPT_DATA] snapshot 7 is corrupt: bad json"},
		{"plain", fmt.Errorf("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := outputError(tt.err)
			exit, ok := err.(cli.ExitCoder)
			require.True(t, ok)
			require.Equal(t, 1, exit.ExitCode())
			require.Equal(t, tt.want, err.Error())
		})
	}
}

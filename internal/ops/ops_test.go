package ops

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hpungsan/stopka/internal/asana"
	"github.com/hpungsan/stopka/internal/errors"
	"github.com/hpungsan/stopka/internal/snapshot"
)

const annaNote = "Anna Nowak\nWarszawa\nMazowieckie\n123 456 789\nno"

// fakeSource serves tasks from memory.
type fakeSource struct {
	refs     []asana.TaskRef
	tasks    map[string]*asana.Task
	listErr  error
	getErr   map[string]error
	gotCalls []string
}

func (f *fakeSource) ListProjectTasks(_ context.Context, projectID string) ([]asana.TaskRef, error) {
	f.gotCalls = append(f.gotCalls, "list:"+projectID)
	return f.refs, f.listErr
}

func (f *fakeSource) GetTask(_ context.Context, taskID string) (*asana.Task, error) {
	f.gotCalls = append(f.gotCalls, "get:"+taskID)
	if err := f.getErr[taskID]; err != nil {
		return nil, err
	}
	t, ok := f.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("no task %s", taskID)
	}
	return t, nil
}

// fakeUploader records uploads and fails for selected tasks.
type fakeUploader struct {
	uploads map[string]upload
	failFor map[string]bool
}

type upload struct {
	filename string
	content  string
	mimeType string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploads: map[string]upload{}, failFor: map[string]bool{}}
}

func (f *fakeUploader) UploadAttachment(_ context.Context, taskID, filename string, content []byte, mimeType string) error {
	if f.failFor[taskID] {
		return errors.NewUpstream("upload attachment", 500, "boom")
	}
	f.uploads[taskID] = upload{filename: filename, content: string(content), mimeType: mimeType}
	return nil
}

func task(gid, name, notes string) *asana.Task {
	return &asana.Task{GID: gid, Name: name, Notes: notes, CreatedBy: &asana.User{GID: "creator-" + gid}}
}

func newFileStore(t *testing.T) *snapshot.FileStore {
	t.Helper()
	store, err := snapshot.NewFileStore(filepath.Join(t.TempDir(), "json"))
	require.NoError(t, err)
	return store
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

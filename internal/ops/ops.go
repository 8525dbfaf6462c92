package ops

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/stopka/internal/asana"
)

// MimeHTML is the content type of uploaded footers.
const MimeHTML = "text/html"

// TaskSource lists project tasks and fetches task details.
// *asana.Client implements it.
type TaskSource interface {
	ListProjectTasks(ctx context.Context, projectID string) ([]asana.TaskRef, error)
	GetTask(ctx context.Context, taskID string) (*asana.Task, error)
}

// Uploader attaches a file to a task. *asana.Client implements it.
type Uploader interface {
	UploadAttachment(ctx context.Context, taskID, filename string, content []byte, mimeType string) error
}

// generateRunID returns a ULID identifying one pipeline run in logs and output.
func generateRunID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

package ops

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/stopka/internal/contact"
	"github.com/hpungsan/stopka/internal/errors"
	"github.com/hpungsan/stopka/internal/snapshot"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ProjectID string // required
	Marker    string // required; matched case-sensitively against task names
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	RunID     string   `json:"run_id"`
	Listed    int      `json:"listed"`
	Completed int      `json:"completed"`
	Matched   int      `json:"matched"`
	Sentinel  int      `json:"sentinel"`
	Written   []string `json:"written"`
}

// Fetch lists the project's tasks, keeps incomplete tasks whose name contains
// the marker, parses their notes and writes one snapshot per task.
// Any error from the task source or the store aborts the run.
func Fetch(ctx context.Context, src TaskSource, store snapshot.Store, log *zap.Logger, input FetchInput) (*FetchOutput, error) {
	if strings.TrimSpace(input.ProjectID) == "" {
		return nil, errors.NewInvalidRequest("project_id is required")
	}
	if input.Marker == "" {
		return nil, errors.NewInvalidRequest("marker must not be empty")
	}

	out := &FetchOutput{RunID: generateRunID(), Written: []string{}}
	log = log.With(zap.String("run_id", out.RunID), zap.String("phase", "fetch"))

	tasks, err := src.ListProjectTasks(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	out.Listed = len(tasks)
	log.Info("listed project tasks", zap.String("project_id", input.ProjectID), zap.Int("count", len(tasks)))

	for _, ref := range tasks {
		if ref.Completed {
			out.Completed++
			continue
		}

		task, err := src.GetTask(ctx, ref.GID)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(task.Name, input.Marker) {
			log.Debug("skipping task without marker", zap.String("task_id", ref.GID), zap.String("task_name", task.Name))
			continue
		}
		out.Matched++

		record := contact.Parse(ref.GID, task.Name, task.CreatorID(), task.Notes)
		if record.IsSentinel() {
			out.Sentinel++
			log.Warn("task notes have fewer than 5 lines",
				zap.String("task_id", ref.GID),
				zap.String("task_name", task.Name))
		}
		log.Debug("parsed task notes",
			zap.String("task_id", ref.GID),
			zap.String("task_name", task.Name),
			zap.String("creator_id", record.CreatorID),
			zap.String("notes", task.Notes),
			zap.String("first_name", record.FirstName),
			zap.String("last_name", record.LastName),
			zap.String("locality", record.Locality),
			zap.String("region", record.Region),
			zap.String("phone", record.Phone),
			zap.String("photo_flag", record.PhotoFlag))

		key, err := store.Write(ctx, record)
		if err != nil {
			return nil, err
		}
		out.Written = append(out.Written, key)
		log.Info("wrote snapshot", zap.String("task_id", key), zap.String("task_name", task.Name))
	}

	log.Info("fetch finished",
		zap.Int("listed", out.Listed),
		zap.Int("matched", out.Matched),
		zap.Int("written", len(out.Written)))
	return out, nil
}

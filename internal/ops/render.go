package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hpungsan/stopka/internal/contact"
	"github.com/hpungsan/stopka/internal/errors"
	"github.com/hpungsan/stopka/internal/render"
	"github.com/hpungsan/stopka/internal/snapshot"
)

// TemplateRenderer turns template data into markup. *render.Renderer implements it.
type TemplateRenderer interface {
	Render(id render.TemplateID, data render.Data) (string, error)
}

// Failure stages reported in RenderOutput.Failures.
const (
	StageRead   = "read"
	StageRender = "render"
	StageWrite  = "write"
	StageUpload = "upload"
)

// RenderInput contains parameters for the Render operation.
type RenderInput struct {
	OutputDir string // required
	Upload    bool   // attach each rendered file to its task
}

// RenderedFile describes one footer written to disk.
type RenderedFile struct {
	TaskID   string `json:"task_id"`
	Path     string `json:"path"`
	Template string `json:"template"`
	Uploaded bool   `json:"uploaded"`
}

// RenderFailure records a snapshot that could not be fully processed.
type RenderFailure struct {
	TaskID string `json:"task_id"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

// RenderOutput contains the result of the Render operation.
type RenderOutput struct {
	RunID     string          `json:"run_id"`
	Snapshots int             `json:"snapshots"`
	Rendered  []RenderedFile  `json:"rendered"`
	Failures  []RenderFailure `json:"failures"`
}

// Render reads every snapshot, renders its footer into OutputDir and, when
// input.Upload is set, attaches the file to the originating task.
// Per-snapshot failures are logged and recorded; only listing the store or
// creating the output directory aborts the run.
func Render(ctx context.Context, store snapshot.Store, renderer TemplateRenderer, uploader Uploader, log *zap.Logger, input RenderInput) (*RenderOutput, error) {
	if input.OutputDir == "" {
		return nil, errors.NewInvalidRequest("output_dir is required")
	}
	if input.Upload && uploader == nil {
		return nil, errors.NewInvalidRequest("upload requested without an uploader")
	}

	if err := os.MkdirAll(input.OutputDir, 0755); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create output directory: %w", err))
	}

	out := &RenderOutput{
		RunID:    generateRunID(),
		Rendered: []RenderedFile{},
		Failures: []RenderFailure{},
	}
	log = log.With(zap.String("run_id", out.RunID), zap.String("phase", "render"))

	keys, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	out.Snapshots = len(keys)

	// written maps each output path to the task that produced it in this run.
	written := map[string]string{}

	fail := func(key, stage string, err error) {
		out.Failures = append(out.Failures, RenderFailure{TaskID: key, Stage: stage, Error: err.Error()})
	}

	for _, key := range keys {
		record, err := store.Read(ctx, key)
		if err != nil {
			log.Warn("skipping unreadable snapshot", zap.String("task_id", key), zap.Error(err))
			fail(key, StageRead, err)
			continue
		}

		derived := contact.Derive(record)
		id := render.Select(derived.UsesPhoto)

		html, err := renderer.Render(id, render.NewData(record, derived))
		if err != nil {
			log.Error("render failed", zap.String("task_id", key), zap.String("template", string(id)), zap.Error(err))
			fail(key, StageRender, err)
			continue
		}

		fileName := render.OutputFileName(derived)
		path := filepath.Join(input.OutputDir, fileName)
		if prev, ok := written[path]; ok {
			log.Warn("output file overwritten by another task",
				zap.String("path", path),
				zap.String("task_id", key),
				zap.String("previous_task_id", prev))
		}
		if err := os.WriteFile(path, []byte(html), 0644); err != nil {
			log.Error("write failed", zap.String("task_id", key), zap.String("path", path), zap.Error(err))
			fail(key, StageWrite, err)
			continue
		}
		written[path] = key
		log.Info("generated footer", zap.String("task_id", key), zap.String("path", path), zap.String("template", string(id)))

		file := RenderedFile{TaskID: key, Path: path, Template: string(id)}
		if input.Upload {
			if err := uploader.UploadAttachment(ctx, record.TaskID, fileName, []byte(html), MimeHTML); err != nil {
				log.Error("failed to add attachment", zap.String("task_id", record.TaskID), zap.Error(err))
				fail(key, StageUpload, err)
			} else {
				file.Uploaded = true
				log.Info("added attachment", zap.String("task_id", record.TaskID), zap.String("file", fileName))
			}
		}
		out.Rendered = append(out.Rendered, file)
	}

	log.Info("render finished",
		zap.Int("snapshots", out.Snapshots),
		zap.Int("rendered", len(out.Rendered)),
		zap.Int("failures", len(out.Failures)))
	return out, nil
}

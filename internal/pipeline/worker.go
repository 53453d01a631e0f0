package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dgallion1/docsift/internal/collection"
)

// Worker processes a single collection job.
type Worker struct {
	runner      *collection.Runner
	log         *slog.Logger
	writeOutput bool
}

func NewWorker(runner *collection.Runner, log *slog.Logger, writeOutput bool) *Worker {
	return &Worker{runner: runner, log: log, writeOutput: writeOutput}
}

var stageStatus = map[string]JobStatus{
	collection.StageHarvesting: StatusHarvesting,
	collection.StageRanking:    StatusRanking,
	collection.StageExtracting: StatusExtracting,
}

// Process runs harvest, rank and excerpt for a job and records the result.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "path", job.Path)

	r := *w.runner
	r.Log = log
	r.OnStage = func(stage string) {
		job.SetStatus(stageStatus[stage], stage)
	}

	res, err := r.RunInput(ctx, job.Path, job.Input())
	if err != nil {
		log.Error("collection failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Snapshot().Phase)
		return
	}
	job.SetResult(res)

	if w.writeOutput {
		out := filepath.Join(job.Path, collection.OutputFile)
		if err := collection.WriteResult(out, res); err != nil {
			log.Error("write output failed", "error", err)
			job.AddError(fmt.Sprintf("write output: %s", err))
			job.SetStatus(StatusFailed, "writing")
			return
		}
		log.Info("output written", "file", out)
	}

	job.SetStatus(StatusCompleted, "done")
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"txledger/internal/domain"
)

type ImportOutcome string

const (
	ImportLogged  ImportOutcome = "logged"
	ImportSkipped ImportOutcome = "skipped"
	ImportFailed  ImportOutcome = "failed"
)

type ImportConfig struct {
	Delay    time.Duration
	CallerID string
	Retry    RetryPolicy
}

type ImportSummary struct {
	Total       int
	Success     int
	Skipped     int
	Failed      int
	Errors      []string
	Elapsed     time.Duration
	Interrupted bool
}

// ImportProgress is called after each hash with its 1-based position.
type ImportProgress func(index, total int, hash domain.TransactionHash, outcome ImportOutcome, detail string)

// Importer logs a list of hashes one at a time with a fixed pause between items.
type Importer struct {
	pipeline *Pipeline
	ledger   Ledger
	cfg      ImportConfig
	wait     func(ctx context.Context, d time.Duration) error
}

func NewImporter(pipeline *Pipeline, cfg ImportConfig) (*Importer, error) {
	if pipeline == nil {
		return nil, errors.New("importer requires a pipeline")
	}
	if cfg.CallerID == "" {
		cfg.CallerID = "BULK_IMPORT"
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	return &Importer{pipeline: pipeline, ledger: pipeline.ledger, cfg: cfg, wait: sleepContext}, nil
}

// Run stops submitting work as soon as ctx is cancelled; the item in flight
// finishes its append or never starts it.
func (im *Importer) Run(ctx context.Context, hashes []domain.TransactionHash, progress ImportProgress) (ImportSummary, error) {
	if !im.ledger.IsConnected() {
		return ImportSummary{}, ErrStoreNotConnected
	}
	start := time.Now()
	summary := ImportSummary{Total: len(hashes)}

	for i, hash := range hashes {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		outcome, detail := im.importOne(ctx, hash)
		switch outcome {
		case ImportLogged:
			summary.Success++
		case ImportSkipped:
			summary.Skipped++
		default:
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", hash.Short(), detail))
		}
		if progress != nil {
			progress(i+1, len(hashes), hash, outcome, detail)
		}

		if i < len(hashes)-1 && im.cfg.Delay > 0 {
			if err := im.wait(ctx, im.cfg.Delay); err != nil {
				summary.Interrupted = true
				break
			}
		}
	}

	summary.Elapsed = time.Since(start)
	slog.Info("bulk import finished",
		"total", summary.Total,
		"success", summary.Success,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"interrupted", summary.Interrupted,
	)
	return summary, nil
}

func (im *Importer) importOne(ctx context.Context, hash domain.TransactionHash) (ImportOutcome, string) {
	duplicate, err := im.ledger.CheckDuplicate(ctx, hash)
	if err != nil {
		return ImportFailed, err.Error()
	}
	if duplicate {
		return ImportSkipped, "already exists"
	}

	var record domain.CanonicalRecord
	err = Retry(ctx, im.cfg.Retry, "fetch "+hash.Short(), func(ctx context.Context) error {
		var lookupErr error
		record, lookupErr = im.pipeline.LookupRecord(ctx, hash)
		return lookupErr
	})
	if err != nil {
		return ImportFailed, err.Error()
	}

	result := im.pipeline.Append(ctx, record, im.cfg.CallerID)
	switch result.Kind {
	case ResultLogged:
		return ImportLogged, result.Message
	case ResultDuplicate:
		return ImportSkipped, "already exists"
	default:
		return ImportFailed, result.Detail
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

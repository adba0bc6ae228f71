package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RUN_RUNNING   RunStatus = "running"
	RUN_SUCCEEDED RunStatus = "succeeded"
	RUN_FAILED    RunStatus = "failed"
	RUN_CANCELLED RunStatus = "cancelled"
)

// Run is the bookkeeping record of a single crawl.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Since      time.Time
	Status     RunStatus
	Counters   map[string]int64
}

// BeginRun records the start of a crawl and returns its id.
func (s Store) BeginRun(ctx context.Context, startedAt, since time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.exec(
		ctx,
		`INSERT INTO crawl_runs (id, started_at, since, status, counters) VALUES (?, ?, ?, ?, ?)`,
		id,
		startedAt.Format(time.RFC3339),
		since.Format(dateLayout),
		string(RUN_RUNNING),
		"{}",
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final status and counters of a crawl.
func (s Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, status RunStatus, counters map[string]int64) error {
	encoded, err := json.Marshal(counters)
	if err != nil {
		return err
	}
	res, err := s.exec(
		ctx,
		`UPDATE crawl_runs SET finished_at = ?, status = ?, counters = ? WHERE id = ?`,
		finishedAt.Format(time.RFC3339),
		string(status),
		string(encoded),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("finish run: unknown run '%s'", id)
	}
	return nil
}

func (s Store) Run(ctx context.Context, id string) (Run, bool, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
		since      string
		status     string
		counters   string
	)
	err := s.queryRow(
		ctx,
		`SELECT id, started_at, finished_at, since, status, counters FROM crawl_runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &startedAt, &finishedAt, &since, &status, &counters)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}

	run.Status = RunStatus(status)
	run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return Run{}, false, err
	}
	if finishedAt.Valid {
		run.FinishedAt, err = time.Parse(time.RFC3339, finishedAt.String)
		if err != nil {
			return Run{}, false, err
		}
	}
	run.Since, err = time.Parse(dateLayout, since)
	if err != nil {
		return Run{}, false, err
	}
	err = json.Unmarshal([]byte(counters), &run.Counters)
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

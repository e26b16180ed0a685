package history

import (
	"database/sql"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sigreer/ardenthat/internal/errors"
	"github.com/sigreer/ardenthat/internal/installer"
)

// Run statuses
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusNoop      = "noop"
)

// Run is one recorded setup invocation
type Run struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	Applied       int       `json:"applied"`
	Finalized     bool      `json:"finalized"`
	Hostname      string    `json:"hostname,omitempty"`
	KernelRelease string    `json:"kernel_release,omitempty"`
	Steps         []Step    `json:"steps"`
}

// Step is one recorded plan step
type Step struct {
	Seq      int           `json:"seq"`
	Driver   string        `json:"driver"`
	Kind     string        `json:"kind"`
	State    string        `json:"state"`
	Action   string        `json:"action"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// NewRun builds a journal record from an executed plan. runErr is the
// error that ended the run, if any.
func NewRun(started time.Time, res *installer.Result, runErr error, finalized bool) *Run {
	run := &Run{
		ID:         uuid.New().String(),
		StartedAt:  started,
		FinishedAt: time.Now(),
		Status:     StatusSucceeded,
		Finalized:  finalized,
		Steps:      []Step{},
	}
	if host, err := os.Hostname(); err == nil {
		run.Hostname = host
	}
	if release, err := installer.KernelRelease(); err == nil {
		run.KernelRelease = release
	}

	if res != nil {
		run.Applied = res.Applied
		for i, o := range res.Outcomes {
			s := Step{
				Seq:      i + 1,
				Driver:   o.Driver,
				Kind:     string(o.Kind),
				State:    string(o.State),
				Action:   string(o.Action),
				Duration: o.Duration,
			}
			if o.Err != nil {
				s.Error = o.Err.Error()
			}
			run.Steps = append(run.Steps, s)
		}
	}

	switch {
	case runErr != nil:
		run.Status = StatusFailed
		run.Error = runErr.Error()
	case len(run.Steps) == 0:
		run.Status = StatusNoop
	}
	return run
}

// RecordRun stores a run and its steps atomically
func (j *Journal) RecordRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := j.conn.Begin()
	if err != nil {
		return errors.Wrap(err, errors.ErrHistory, "failed to begin transaction")
	}

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, finished_at, status, error, applied, finalized, hostname, kernel_release)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Status, run.Error,
		run.Applied, run.Finalized, run.Hostname, run.KernelRelease)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, errors.ErrHistory, "failed to record run")
	}

	for _, s := range run.Steps {
		_, err := tx.Exec(`
			INSERT INTO steps (run_id, seq, driver, kind, state, action, error, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, s.Seq, s.Driver, s.Kind, s.State, s.Action, s.Error, s.Duration.Milliseconds())
		if err != nil {
			tx.Rollback()
			return errors.Wrapf(err, errors.ErrHistory, "failed to record step %d", s.Seq)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the newest runs first, with their steps
func (j *Journal) RecentRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.conn.Query(`
		SELECT id, started_at, finished_at, status, error, applied, finalized, hostname, kernel_release
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrHistory, "failed to query runs")
	}

	var runs []*Run
	for rows.Next() {
		var (
			r                      Run
			started, finished      int64
			errText, host, release sql.NullString
			finalized              bool
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Status, &errText, &r.Applied, &finalized, &host, &release); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, errors.ErrHistory, "failed to scan run")
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		r.Error = errText.String
		r.Finalized = finalized
		r.Hostname = host.String
		r.KernelRelease = release.String
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, r := range runs {
		steps, err := j.steps(r.ID)
		if err != nil {
			return nil, err
		}
		r.Steps = steps
	}
	return runs, nil
}

func (j *Journal) steps(runID string) ([]Step, error) {
	rows, err := j.conn.Query(`
		SELECT seq, driver, kind, state, action, error, duration_ms
		FROM steps
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrHistory, "failed to query steps")
	}
	defer rows.Close()

	steps := []Step{}
	for rows.Next() {
		var (
			s                   Step
			kind, action, errTx sql.NullString
			ms                  int64
		)
		if err := rows.Scan(&s.Seq, &s.Driver, &kind, &s.State, &action, &errTx, &ms); err != nil {
			return nil, errors.Wrap(err, errors.ErrHistory, "failed to scan step")
		}
		s.Kind = kind.String
		s.Action = action.String
		s.Error = errTx.String
		s.Duration = time.Duration(ms) * time.Millisecond
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

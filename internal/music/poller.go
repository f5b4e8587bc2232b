package music

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/artscan/pkg/models"
)

// Poll outcomes other than success.
var (
	ErrTaskFailed     = errors.New("music task failed")
	ErrEmptyTrackList = errors.New("music task completed without tracks")
	ErrPollTimeout    = errors.New("music task polling exhausted")
)

// Defaults bound polling to about ten minutes.
const (
	DefaultMaxAttempts = 120
	DefaultInterval    = 5 * time.Second
)

// TaskFailedError carries the terminal failure status reported by the provider.
type TaskFailedError struct {
	TaskID  string
	Status  models.TaskStatus
	Message string
}

func (e *TaskFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: task %s: %s", ErrTaskFailed, e.TaskID, e.Status)
	}
	return fmt.Sprintf("%s: task %s: %s: %s", ErrTaskFailed, e.TaskID, e.Status, e.Message)
}

func (e *TaskFailedError) Is(target error) bool { return target == ErrTaskFailed }

// StatusRecorder stores the latest observed state of a task.
type StatusRecorder interface {
	RecordTask(ctx context.Context, task models.GenerationTask) error
}

// Observer receives poll and generation events, typically for metrics.
type Observer interface {
	PollAttempt(status string)
	GenerationFinished(outcome string)
}

type noopObserver struct{}

func (noopObserver) PollAttempt(string)        {}
func (noopObserver) GenerationFinished(string) {}

// Poller checks a task until it reaches a terminal state or runs out of attempts.
type Poller struct {
	client      Client
	maxAttempts int
	interval    time.Duration
	recorder    StatusRecorder
	observer    Observer
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithMaxAttempts overrides the number of status checks.
func WithMaxAttempts(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithInterval overrides the wait between status checks.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d >= 0 {
			p.interval = d
		}
	}
}

// WithRecorder stores every observed status.
func WithRecorder(r StatusRecorder) PollerOption {
	return func(p *Poller) { p.recorder = r }
}

// WithObserver reports attempts and outcomes.
func WithObserver(o Observer) PollerOption {
	return func(p *Poller) {
		if o != nil {
			p.observer = o
		}
	}
}

// NewPoller creates a Poller with the default bounds unless overridden.
func NewPoller(client Client, opts ...PollerOption) *Poller {
	p := &Poller{
		client:      client,
		maxAttempts: DefaultMaxAttempts,
		interval:    DefaultInterval,
		observer:    noopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll returns the first track's audio URL once the task completes.
//
// A failed status check (transport error or non-2xx) spends the attempt and
// polling continues. A body-level rejection, a failure status, or a completed
// task without tracks ends polling at once. No wait follows the final attempt.
func (p *Poller) Poll(ctx context.Context, taskID string) (string, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		info, err := p.client.RecordInfo(ctx, taskID)
		switch {
		case errors.Is(err, ErrLookupRejected):
			p.observer.PollAttempt("rejected")
			return "", err
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			p.observer.PollAttempt("error")
			slog.Warn("music status check failed, retrying",
				"task_id", taskID, "attempt", attempt, "max_attempts", p.maxAttempts, "error", err)
		default:
			p.observer.PollAttempt(string(info.Status))
			p.record(ctx, taskID, attempt, info)

			if url, done, err := evaluate(taskID, info); done {
				if err == nil {
					slog.Info("music generation complete", "task_id", taskID, "attempts", attempt)
				}
				return url, err
			}
			slog.Debug("music task in progress", "task_id", taskID, "status", info.Status, "attempt", attempt)
		}

		if attempt == p.maxAttempts {
			break
		}
		if err := wait(ctx, p.interval); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: task %s after %d attempts", ErrPollTimeout, taskID, p.maxAttempts)
}

// evaluate decides whether info is terminal. Unknown statuses keep polling.
func evaluate(taskID string, info RecordInfo) (url string, done bool, err error) {
	switch {
	case info.Status == models.TaskStatusComplete:
		tracks := info.Tracks()
		if len(tracks) == 0 || tracks[0].AudioURL == "" {
			return "", true, fmt.Errorf("%w: task %s", ErrEmptyTrackList, taskID)
		}
		return tracks[0].AudioURL, true, nil
	case info.Status.IsFailure():
		return "", true, &TaskFailedError{TaskID: taskID, Status: info.Status, Message: info.ErrorMessage}
	default:
		return "", false, nil
	}
}

func (p *Poller) record(ctx context.Context, taskID string, attempt int, info RecordInfo) {
	if p.recorder == nil {
		return
	}
	task := models.GenerationTask{
		TaskID:       taskID,
		Status:       info.Status,
		Attempt:      attempt,
		ErrorMessage: info.ErrorMessage,
		UpdatedAt:    time.Now().UTC(),
	}
	if tracks := info.Tracks(); info.Status == models.TaskStatusComplete && len(tracks) > 0 {
		task.AudioURL = tracks[0].AudioURL
	}
	if err := p.recorder.RecordTask(ctx, task); err != nil {
		slog.Debug("recording music task status failed", "task_id", taskID, "error", err)
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package school

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kalasi/darasa/core"
)

type (
	// Feed is the read surface a connected client polls. Implementations may
	// call the HTTP API or an in-process Service.
	Feed interface {
		Notifications(ctx context.Context, principalEmail, role string) ([]Query, error)
		StudentAssignments(ctx context.Context, studentEmail string) ([]StudentAssignment, error)
		TeacherSubmissions(ctx context.Context, teacherEmail string) ([]TeacherSubmission, error)
	}

	// Snapshot is one principal's reconciled view at a point in time.
	Snapshot struct {
		Principal     string
		Role          string
		Notifications []Query
		Assignments   []StudentAssignment
		Submissions   []TeacherSubmission
		RefreshedAt   time.Time
	}

	// Watcher keeps one principal's Snapshot fresh by polling the Feed on a
	// fixed interval and on identity change. Each Watcher runs its own
	// goroutine; a slow or failing fetch never affects another Watcher.
	Watcher struct {
		feed     Feed
		interval time.Duration
		timeout  time.Duration
		logger   core.Logger

		mu       sync.Mutex
		snapshot Snapshot
		epoch    int // bumped on every identity change; stale cycles must not merge
		cancel   context.CancelFunc
	}
)

func NewWatcher(feed Feed, conf *core.Config, logger core.Logger) *Watcher {
	return &Watcher{
		feed:     feed,
		interval: conf.PollInterval,
		timeout:  conf.RequestTimeout,
		logger:   logger,
	}
}

// SetPrincipal switches the watcher to a new identity. The previous loop is
// cancelled and its in-flight results discarded; an empty email (logout)
// stops polling and zeroes the view.
func (w *Watcher) SetPrincipal(principalEmail, role string) {
	principalEmail = core.CleanString(principalEmail, true /* lower */)

	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.epoch++
	epoch := w.epoch
	w.snapshot = Snapshot{Principal: principalEmail, Role: role}
	if principalEmail == "" {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.mu.Unlock()

	go w.run(ctx, epoch, principalEmail, role)
}

// Stop halts polling and discards any in-flight refresh.
func (w *Watcher) Stop() {
	w.SetPrincipal("", "")
}

// Snapshot returns the current reconciled view.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot
}

func (w *Watcher) run(ctx context.Context, epoch int, principalEmail, role string) {
	w.refresh(ctx, epoch, principalEmail, role)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refresh(ctx, epoch, principalEmail, role)
		}
	}
}

// refresh fetches a full view and swaps it in atomically. A failed cycle
// keeps the previous snapshot and retries on the next tick.
func (w *Watcher) refresh(ctx context.Context, epoch int, principalEmail, role string) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	snap := Snapshot{Principal: principalEmail, Role: role}

	notifications, err := w.feed.Notifications(ctx, principalEmail, role)
	if err != nil {
		w.logger.Warn(fmt.Sprintf("poll: fetching notifications for %s: %v", principalEmail, err), err)
		return
	}
	snap.Notifications = notifications

	switch role {
	case RoleStudent:
		assignments, err := w.feed.StudentAssignments(ctx, principalEmail)
		if err != nil {
			w.logger.Warn(fmt.Sprintf("poll: fetching assignments for %s: %v", principalEmail, err), err)
			return
		}
		snap.Assignments = assignments
	case RoleTeacher:
		submissions, err := w.feed.TeacherSubmissions(ctx, principalEmail)
		if err != nil {
			w.logger.Warn(fmt.Sprintf("poll: fetching submissions for %s: %v", principalEmail, err), err)
			return
		}
		snap.Submissions = submissions
	}
	snap.RefreshedAt = time.Now().UTC()

	w.mu.Lock()
	if epoch == w.epoch {
		w.snapshot = snap
	}
	w.mu.Unlock()
}

// LocalFeed adapts an in-process Service to the Feed interface.
type LocalFeed struct {
	Svc *Service
}

var _ Feed = (*LocalFeed)(nil)

func (f LocalFeed) Notifications(_ context.Context, principalEmail, role string) ([]Query, error) {
	return f.Svc.ListNotifications(principalEmail, role)
}

func (f LocalFeed) StudentAssignments(_ context.Context, studentEmail string) ([]StudentAssignment, error) {
	return f.Svc.StudentAssignments(studentEmail, "")
}

func (f LocalFeed) TeacherSubmissions(_ context.Context, teacherEmail string) ([]TeacherSubmission, error) {
	return f.Svc.TeacherSubmissions(teacherEmail)
}

package school_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalasi/darasa/core"
	"github.com/kalasi/darasa/core/school"
)

type fakeFeed struct {
	mu            sync.Mutex
	notifications map[string][]school.Query
	assignments   map[string][]school.StudentAssignment
	submissions   map[string][]school.TeacherSubmission
	failing       bool
	delay         time.Duration
}

var _ school.Feed = (*fakeFeed)(nil)

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		notifications: make(map[string][]school.Query),
		assignments:   make(map[string][]school.StudentAssignment),
		submissions:   make(map[string][]school.TeacherSubmission),
	}
}

func (f *fakeFeed) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func (f *fakeFeed) addNotification(email string, qry school.Query) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications[email] = append(f.notifications[email], qry)
}

func (f *fakeFeed) Notifications(ctx context.Context, principalEmail, _ string) ([]school.Query, error) {
	f.mu.Lock()
	failing, delay := f.failing, f.delay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if failing {
		return nil, errors.New("feed down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notifications[principalEmail], nil
}

func (f *fakeFeed) StudentAssignments(_ context.Context, studentEmail string) ([]school.StudentAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assignments[studentEmail], nil
}

func (f *fakeFeed) TeacherSubmissions(_ context.Context, teacherEmail string) ([]school.TeacherSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissions[teacherEmail], nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestWatcher(feed school.Feed) *school.Watcher {
	conf := &core.Config{
		PollInterval:   10 * time.Millisecond,
		RequestTimeout: 50 * time.Millisecond,
	}
	return school.NewWatcher(feed, conf, nopLogger{})
}

func Test_Watcher_refresh(t *testing.T) {
	feed := newFakeFeed()
	feed.addNotification("amani@school.cd", school.Query{ID: "q1", Message: "hello"})

	w := newTestWatcher(feed)
	defer w.Stop()
	w.SetPrincipal("amani@school.cd", school.RoleStudent)

	require.Eventually(t, func() bool {
		return len(w.Snapshot().Notifications) == 1
	}, time.Second, 5*time.Millisecond)
	snap := w.Snapshot()
	assert.Equal(t, "amani@school.cd", snap.Principal)
	assert.Equal(t, school.RoleStudent, snap.Role)
	assert.False(t, snap.RefreshedAt.IsZero())

	// new server-side state shows up within a poll period
	feed.addNotification("amani@school.cd", school.Query{ID: "q2", Message: "again"})
	require.Eventually(t, func() bool {
		return len(w.Snapshot().Notifications) == 2
	}, time.Second, 5*time.Millisecond)
}

func Test_Watcher_failedCycleKeepsSnapshot(t *testing.T) {
	feed := newFakeFeed()
	feed.addNotification("amani@school.cd", school.Query{ID: "q1"})

	w := newTestWatcher(feed)
	defer w.Stop()
	w.SetPrincipal("amani@school.cd", school.RoleStudent)

	require.Eventually(t, func() bool {
		return len(w.Snapshot().Notifications) == 1
	}, time.Second, 5*time.Millisecond)
	refreshedAt := w.Snapshot().RefreshedAt

	// a failing feed never wipes the last good view
	feed.setFailing(true)
	time.Sleep(50 * time.Millisecond)
	snap := w.Snapshot()
	assert.Len(t, snap.Notifications, 1)
	assert.Equal(t, refreshedAt, snap.RefreshedAt)

	// and recovery resumes on the next tick
	feed.addNotification("amani@school.cd", school.Query{ID: "q2"})
	feed.setFailing(false)
	require.Eventually(t, func() bool {
		return len(w.Snapshot().Notifications) == 2
	}, time.Second, 5*time.Millisecond)
}

func Test_Watcher_identityChange(t *testing.T) {
	feed := newFakeFeed()
	feed.addNotification("amani@school.cd", school.Query{ID: "q1"})
	feed.addNotification("mwalimu@school.cd", school.Query{ID: "q2"})

	w := newTestWatcher(feed)
	defer w.Stop()

	// a slow fetch for the old identity must never land after a switch
	feed.mu.Lock()
	feed.delay = 20 * time.Millisecond
	feed.mu.Unlock()
	w.SetPrincipal("amani@school.cd", school.RoleStudent)
	w.SetPrincipal("mwalimu@school.cd", school.RoleTeacher)

	require.Eventually(t, func() bool {
		snap := w.Snapshot()
		return snap.Principal == "mwalimu@school.cd" && len(snap.Notifications) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Never(t, func() bool {
		return w.Snapshot().Principal == "amani@school.cd"
	}, 100*time.Millisecond, 10*time.Millisecond)

	// logout stops polling and zeroes the view
	w.Stop()
	snap := w.Snapshot()
	assert.Empty(t, snap.Principal)
	assert.Empty(t, snap.Notifications)

	assert.Never(t, func() bool {
		return len(w.Snapshot().Notifications) > 0
	}, 100*time.Millisecond, 10*time.Millisecond)
}

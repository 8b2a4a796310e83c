package runner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/miraiskin/platform/internal/audit"
	"github.com/miraiskin/platform/internal/domain"
	"go.uber.org/zap"
)

type queueStore struct {
	queue    []*domain.Task
	excluded [][]string
	finished map[string]domain.TaskStatus
	errs     map[string]string
	progress map[string][]int
}

func newQueueStore(tasks ...*domain.Task) *queueStore {
	return &queueStore{
		queue:    tasks,
		finished: make(map[string]domain.TaskStatus),
		errs:     make(map[string]string),
		progress: make(map[string][]int),
	}
}

func (q *queueStore) ClaimPendingTask(_ context.Context, excluded []string) (*domain.Task, error) {
	q.excluded = append(q.excluded, excluded)
	if len(q.queue) == 0 {
		return nil, nil
	}
	t := q.queue[0]
	q.queue = q.queue[1:]
	t.Status = domain.TaskRunning
	return t, nil
}

func (q *queueStore) SetTaskProgress(_ context.Context, id string, pct int) error {
	q.progress[id] = append(q.progress[id], pct)
	return nil
}

func (q *queueStore) FinishTask(_ context.Context, id string, status domain.TaskStatus, _ json.RawMessage, errMsg string) error {
	if _, ok := q.finished[id]; ok {
		return domain.ErrTaskTerminal
	}
	q.finished[id] = status
	q.errs[id] = errMsg
	return nil
}

type recordingTrail struct {
	events []audit.Event
}

func (r *recordingTrail) Log(e audit.Event) { r.events = append(r.events, e) }

type stubJob struct {
	kind domain.TaskKind
	err  error
}

func (s *stubJob) Kind() domain.TaskKind { return s.kind }

func (s *stubJob) Run(_ context.Context, _ *domain.Task, progress ProgressFunc) (json.RawMessage, error) {
	progress(50)
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(`{"ok":true}`), nil
}

func newTestRunner(store TaskStore, trail audit.Recorder) *Runner {
	pause := NewPauseManager(nil, nil, zap.NewNop())
	return New(store, nil, pause, trail, nil, time.Second, zap.NewNop())
}

func TestDrainExecutesUntilQueueEmpty(t *testing.T) {
	store := newQueueStore(
		&domain.Task{ID: "t-1", Kind: domain.TaskCarrierSync, Status: domain.TaskPending},
		&domain.Task{ID: "t-2", Kind: domain.TaskCarrierSync, Status: domain.TaskPending},
	)
	trail := &recordingTrail{}
	r := newTestRunner(store, trail)
	r.Register(&stubJob{kind: domain.TaskCarrierSync})

	r.drain(context.Background())

	if store.finished["t-1"] != domain.TaskCompleted || store.finished["t-2"] != domain.TaskCompleted {
		t.Errorf("finished = %v", store.finished)
	}
	if len(store.progress["t-1"]) == 0 {
		t.Error("job progress was not persisted")
	}
	if len(trail.events) != 2 || trail.events[0].Action != "task.completed" {
		t.Errorf("audit events = %+v", trail.events)
	}
}

func TestExecuteFailedJob(t *testing.T) {
	store := newQueueStore(&domain.Task{ID: "t-1", Kind: domain.TaskPriceSync, Status: domain.TaskPending})
	trail := &recordingTrail{}
	r := newTestRunner(store, trail)
	r.Register(&stubJob{kind: domain.TaskPriceSync, err: errors.New("upstream down")})

	r.drain(context.Background())

	if store.finished["t-1"] != domain.TaskFailed {
		t.Errorf("status = %s, want FAILED", store.finished["t-1"])
	}
	if store.errs["t-1"] != "upstream down" {
		t.Errorf("error = %q", store.errs["t-1"])
	}
	if len(trail.events) != 1 || trail.events[0].Action != "task.failed" {
		t.Errorf("audit events = %+v", trail.events)
	}
}

func TestExecuteWithoutHandlerFails(t *testing.T) {
	store := newQueueStore(&domain.Task{ID: "t-1", Kind: domain.TaskInstagramPublish, Status: domain.TaskPending})
	r := newTestRunner(store, &recordingTrail{})
	// Ни одной джобы не зарегистрировано

	r.drain(context.Background())

	if store.finished["t-1"] != domain.TaskFailed {
		t.Errorf("status = %s, want FAILED", store.finished["t-1"])
	}
}

func TestPausedKindsReachClaimFilter(t *testing.T) {
	store := newQueueStore()
	r := newTestRunner(store, &recordingTrail{})
	r.pause.paused[domain.TaskInstagramPublish] = struct{}{}

	r.drain(context.Background())

	if len(store.excluded) != 1 || len(store.excluded[0]) != 1 || store.excluded[0][0] != string(domain.TaskInstagramPublish) {
		t.Errorf("claim excluded = %v", store.excluded)
	}
}

func TestUnionDeduplicates(t *testing.T) {
	got := union([]string{"a", "b"}, []string{"b", "c"})
	if len(got) != 3 {
		t.Errorf("union = %v", got)
	}
}

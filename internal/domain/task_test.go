package domain

import "testing"

func TestTaskTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    TaskStatus
		to      TaskStatus
		wantErr error
	}{
		{"pending to running", TaskPending, TaskRunning, nil},
		{"running to completed", TaskRunning, TaskCompleted, nil},
		{"running to failed", TaskRunning, TaskFailed, nil},
		{"pending to completed", TaskPending, TaskCompleted, ErrTaskNotRunning},
		{"running back to pending", TaskRunning, TaskPending, ErrTaskNotRunning},
		{"completed to running", TaskCompleted, TaskRunning, ErrTaskTerminal},
		{"failed to completed", TaskFailed, TaskCompleted, ErrTaskTerminal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := &Task{Status: tc.from}
			if err := task.CanTransitionTo(tc.to); err != tc.wantErr {
				t.Fatalf("CanTransitionTo(%s): got %v, want %v", tc.to, err, tc.wantErr)
			}
		})
	}
}

func TestTaskTerminal(t *testing.T) {
	for _, st := range []TaskStatus{TaskPending, TaskRunning} {
		if (&Task{Status: st}).Terminal() {
			t.Errorf("%s must not be terminal", st)
		}
	}
	for _, st := range []TaskStatus{TaskCompleted, TaskFailed} {
		if !(&Task{Status: st}).Terminal() {
			t.Errorf("%s must be terminal", st)
		}
	}
}

func TestKnownKind(t *testing.T) {
	if !KnownKind(TaskPriceSync) {
		t.Error("price-sync must be known")
	}
	if KnownKind(TaskKind("drop-tables")) {
		t.Error("arbitrary kind must be rejected")
	}
}

func TestPriceUpdateTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    PriceUpdateStatus
		to      PriceUpdateStatus
		wantErr error
	}{
		{"pending approve", PriceUpdatePending, PriceUpdateApproved, nil},
		{"pending reject", PriceUpdatePending, PriceUpdateRejected, nil},
		{"pending to pending", PriceUpdatePending, PriceUpdatePending, ErrInvalidTransition},
		{"approved apply", PriceUpdateApproved, PriceUpdateApplied, nil},
		{"approved re-approve", PriceUpdateApproved, PriceUpdateApproved, ErrUpdateAlreadyDecided},
		{"rejected apply", PriceUpdateRejected, PriceUpdateApplied, ErrUpdateAlreadyDecided},
		{"applied reject", PriceUpdateApplied, PriceUpdateRejected, ErrUpdateAlreadyDecided},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := &PriceUpdate{Status: tc.from}
			if err := u.CanTransitionTo(tc.to); err != tc.wantErr {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

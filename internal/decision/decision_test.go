package decision

import (
	"encoding/json"
	"testing"

	"github.com/robocof/robocof/internal/detector"
	"github.com/robocof/robocof/internal/errors"
)

func TestDecision_String(t *testing.T) {
	tests := []struct {
		d    Decision
		want string
	}{
		{UserAbort, "USER_ABORT"},
		{CarryOutAction, "CARRY_OUT_ACTION"},
		{TimeoutNoUser, "TIMEOUT_NO_USER"},
		{TimeoutWrongUser, "TIMEOUT_WRONG_USER"},
		{TimeoutCorrectUser, "TIMEOUT_CORRECT_USER"},
		{Timeout, "TIMEOUT"},
		{Error, "ERROR"},
		{Decision(42), "Decision(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.d.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecision_JSON(t *testing.T) {
	payload := struct {
		Decision Decision `json:"decision"`
		RunID    int      `json:"run_id"`
	}{CarryOutAction, 7}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"decision":"CARRY_OUT_ACTION","run_id":7}` {
		t.Errorf("Marshal() = %s", data)
	}

	var d Decision
	if err := json.Unmarshal([]byte(`"timeout_wrong_user"`), &d); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if d != TimeoutWrongUser {
		t.Errorf("Unmarshal() = %v", d)
	}

	if err := json.Unmarshal([]byte(`"MAYBE"`), &d); err == nil {
		t.Error("expected error for unknown decision")
	}
	if _, err := json.Marshal(Decision(-1)); err == nil {
		t.Error("expected error marshalling invalid decision")
	}
}

func TestDecision_IsTimeout(t *testing.T) {
	for _, d := range All() {
		want := d == Timeout || d == TimeoutNoUser || d == TimeoutWrongUser || d == TimeoutCorrectUser
		if got := d.IsTimeout(); got != want {
			t.Errorf("%v.IsTimeout() = %v, want %v", d, got, want)
		}
	}
}

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		name     string
		positive []string
		negative []string
		wantErr  bool
	}{
		{"defaults", []string{"THUMB_UP"}, []string{"OPEN_PALM"}, false},
		{"only negative", nil, []string{"OPEN_PALM"}, false},
		{"unknown positive", []string{"WAVE"}, nil, true},
		{"unknown negative", []string{"THUMB_UP"}, []string{"UNKNOWN"}, true},
		{"empty", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy(tt.positive, tt.negative, false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPolicy() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsConfiguration(err) {
				t.Errorf("expected ConfigurationError, got %T", err)
			}
		})
	}
}

func gestures(gs ...detector.Gesture) detector.Outcome {
	return detector.Conclusive(detector.Result{Gestures: detector.NewGestureSet(gs...)})
}

func identityOutcome(m detector.IdentityMatch) detector.Outcome {
	return detector.Conclusive(detector.Result{Identity: m})
}

func TestPolicy_Evaluate(t *testing.T) {
	policy, err := NewPolicy([]string{"THUMB_UP"}, []string{"OPEN_PALM"}, false)
	if err != nil {
		t.Fatal(err)
	}
	fault := errors.NewDetectorFault("identity", errors.New("boom"))

	tests := []struct {
		name         string
		task         Task
		out          detector.Outcome
		wantTerminal bool
		want         Decision
	}{
		{"positive gesture", TaskGesture, gestures(detector.GestureThumbUp), true, CarryOutAction},
		{"negative gesture", TaskGesture, gestures(detector.GestureOpenPalm), true, UserAbort},
		{"overlap prefers positive", TaskGesture, gestures(detector.GestureOpenPalm, detector.GestureThumbUp), true, CarryOutAction},
		{"untriggered gesture", TaskGesture, gestures(detector.GestureVictory), false, Error},
		{"no gestures", TaskGesture, gestures(), false, Error},
		{"identity waits for deadline", TaskIdentity, identityOutcome(detector.IdentityCorrect), false, Error},
		{"occupancy", TaskOccupancy, detector.Conclusive(detector.Result{Occupancy: detector.OccupancySeatOccupied}), false, Error},
		{"deadline", TaskDeadline, detector.Conclusive(detector.Result{Expired: true}), true, Timeout},
		{"continue", TaskGesture, detector.Continue(), false, Error},
		{"failed", TaskIdentity, detector.Failed(fault), true, Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := policy.Evaluate(tt.task, tt.out)
			if v.Terminal != tt.wantTerminal {
				t.Fatalf("Terminal = %v, want %v", v.Terminal, tt.wantTerminal)
			}
			if v.Terminal && v.Decision != tt.want {
				t.Errorf("Decision = %v, want %v", v.Decision, tt.want)
			}
		})
	}
}

func TestPolicy_Expire(t *testing.T) {
	policy, err := NewPolicy([]string{"THUMB_UP"}, []string{"OPEN_PALM"}, false)
	if err != nil {
		t.Fatal(err)
	}
	expired := detector.Conclusive(detector.Result{Expired: true})

	tests := []struct {
		name     string
		identity detector.Outcome
		want     Decision
	}{
		{"identity pending", detector.Continue(), Timeout},
		{"identity absent", identityOutcome(detector.IdentityAbsent), TimeoutNoUser},
		{"identity wrong", identityOutcome(detector.IdentityWrong), TimeoutWrongUser},
		{"identity correct", identityOutcome(detector.IdentityCorrect), TimeoutCorrectUser},
		{"no identity detector", detector.Outcome{}, Timeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := policy.Expire(expired, tt.identity)
			if !v.Terminal || v.Decision != tt.want {
				t.Errorf("Expire() = %v, want %v", v, tt.want)
			}
		})
	}

	debug := *policy
	debug.Debug = true
	if v := debug.Expire(expired, identityOutcome(detector.IdentityCorrect)); v.Terminal {
		t.Errorf("debug Expire() = %v, want continue", v)
	}
}

func TestPolicy_FailedCarriesError(t *testing.T) {
	policy := &Policy{Positive: detector.NewGestureSet(detector.GestureThumbUp)}
	fault := errors.NewDetectorFault("gesture", errors.New("boom"))

	v := policy.Evaluate(TaskGesture, detector.Failed(fault))
	if !errors.Is(v.Err, fault) {
		t.Errorf("Err = %v, want fault", v.Err)
	}
}

func TestPolicy_DebugContinuesEverything(t *testing.T) {
	policy, err := NewPolicy([]string{"THUMB_UP"}, []string{"OPEN_PALM"}, true)
	if err != nil {
		t.Fatal(err)
	}

	completions := map[Task]detector.Outcome{
		TaskGesture:   gestures(detector.GestureThumbUp),
		TaskIdentity:  identityOutcome(detector.IdentityCorrect),
		TaskOccupancy: detector.Conclusive(detector.Result{}),
		TaskDeadline:  detector.Conclusive(detector.Result{}),
	}
	for task, out := range completions {
		if v := policy.Evaluate(task, out); v.Terminal {
			t.Errorf("debug %s: got terminal %v", task, v.Decision)
		}
	}

	// Faults still end a debug run.
	if v := policy.Evaluate(TaskGesture, detector.Failed(errors.New("boom"))); !v.Terminal || v.Decision != Error {
		t.Errorf("debug fault verdict = %+v", v)
	}
}

func TestPolicy_GestureTriggers(t *testing.T) {
	policy, err := NewPolicy([]string{"THUMB_UP", "VICTORY"}, []string{"OPEN_PALM"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := policy.GestureTriggers().String(); got != "OPEN_PALM,THUMB_UP,VICTORY" {
		t.Errorf("GestureTriggers() = %s", got)
	}
}

func TestTaskOrder(t *testing.T) {
	order := []Task{TaskGesture, TaskIdentity, TaskOccupancy, TaskDeadline}
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Errorf("%s must sort before %s", order[i-1], order[i])
		}
	}
	if NumTasks != 4 {
		t.Errorf("NumTasks = %d", NumTasks)
	}
	if task, ok := TaskFor(detector.IdentityID); !ok || task != TaskIdentity {
		t.Errorf("TaskFor(identity) = %v, %v", task, ok)
	}
	if _, ok := TaskFor("seat"); ok {
		t.Error("TaskFor(unknown) should fail")
	}
}

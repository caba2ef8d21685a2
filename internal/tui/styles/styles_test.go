package styles

import "testing"

func TestDecisionStyle(t *testing.T) {
	tests := []struct {
		decision string
		want     any
	}{
		{"CARRY_OUT_ACTION", GreenColor},
		{"TIMEOUT_CORRECT_USER", GreenColor},
		{"USER_ABORT", ErrorColor},
		{"ERROR", ErrorColor},
		{"TIMEOUT", WarningColor},
		{"TIMEOUT_NO_USER", WarningColor},
		{"", BorderColor},
	}

	for _, tt := range tests {
		t.Run(tt.decision, func(t *testing.T) {
			if got := DecisionStyle(tt.decision).GetBackground(); got != tt.want {
				t.Errorf("DecisionStyle(%q) background = %v, want %v", tt.decision, got, tt.want)
			}
		})
	}
}

func TestDecisionStyleRenders(t *testing.T) {
	if out := DecisionStyle("TIMEOUT").Render("TIMEOUT"); out == "" {
		t.Error("Render() returned empty string")
	}
}

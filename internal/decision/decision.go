// Package decision defines the terminal outcome of an arbitration run and
// the policy that maps detector completions onto it.
package decision

import (
	"fmt"
	"strings"
)

// Decision is the single terminal result of an arbitration run.
type Decision int

const (
	// Error is the zero value so an unset Decision never reads as a verdict.
	Error Decision = iota
	UserAbort
	CarryOutAction
	TimeoutNoUser
	TimeoutWrongUser
	TimeoutCorrectUser
	Timeout
)

var names = map[Decision]string{
	Error:              "ERROR",
	UserAbort:          "USER_ABORT",
	CarryOutAction:     "CARRY_OUT_ACTION",
	TimeoutNoUser:      "TIMEOUT_NO_USER",
	TimeoutWrongUser:   "TIMEOUT_WRONG_USER",
	TimeoutCorrectUser: "TIMEOUT_CORRECT_USER",
	Timeout:            "TIMEOUT",
}

// All returns every decision in declaration order.
func All() []Decision {
	return []Decision{Error, UserAbort, CarryOutAction, TimeoutNoUser, TimeoutWrongUser, TimeoutCorrectUser, Timeout}
}

// String returns the wire name of the decision.
func (d Decision) String() string {
	if name, ok := names[d]; ok {
		return name
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// Valid reports whether d is one of the defined decisions.
func (d Decision) Valid() bool {
	_, ok := names[d]
	return ok
}

// IsTimeout reports whether d is one of the deadline-adjacent outcomes.
func (d Decision) IsTimeout() bool {
	switch d {
	case Timeout, TimeoutNoUser, TimeoutWrongUser, TimeoutCorrectUser:
		return true
	}
	return false
}

// Parse converts a wire name (case-insensitive) into a Decision.
func Parse(s string) (Decision, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for d, name := range names {
		if name == want {
			return d, nil
		}
	}
	return Error, fmt.Errorf("unknown decision %q", s)
}

// MarshalText implements encoding.TextMarshaler. JSON and YAML encoders use
// it, so decisions travel as their wire names.
func (d Decision) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid decision %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Decision) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

package domain

import "testing"

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"pending", StatusPending, false},
		{"PENDING", StatusPending, false},
		{" Accepted ", StatusAccepted, false},
		{"cancelled", StatusCancelled, false},
		{"archived", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseStatus(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseStatus(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStatus(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusSent},
		{StatusPending, StatusAccepted},
		{StatusPending, StatusRejected},
		{StatusPending, StatusCancelled},
		{StatusSent, StatusAccepted},
		{StatusSent, StatusRejected},
		{StatusSent, StatusCancelled},
		{StatusAccepted, StatusCancelled},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to Status }{
		{StatusRejected, StatusAccepted},
		{StatusRejected, StatusPending},
		{StatusCancelled, StatusPending},
		{StatusCancelled, StatusSent},
		{StatusAccepted, StatusSent},
		{StatusAccepted, StatusRejected},
		{StatusSent, StatusPending},
		{StatusPending, StatusPending},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransition(tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []Status{StatusRejected, StatusCancelled} {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusSent, StatusAccepted} {
		if s.IsTerminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}

func TestIsActive(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusSent, StatusAccepted} {
		if !s.IsActive() {
			t.Errorf("expected %s to be active", s)
		}
	}
	for _, s := range []Status{StatusRejected, StatusCancelled} {
		if s.IsActive() {
			t.Errorf("expected %s to be inactive", s)
		}
	}
}

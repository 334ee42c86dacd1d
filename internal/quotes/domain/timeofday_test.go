package domain

import "testing"

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"14:00", TimeOfDay{14, 0}, false},
		{"08:30", TimeOfDay{8, 30}, false},
		{"14:00:00", TimeOfDay{14, 0}, false},
		{"00:00", TimeOfDay{0, 0}, false},
		{"23:59", TimeOfDay{23, 59}, false},
		{"24:00", TimeOfDay{}, true},
		{"12:60", TimeOfDay{}, true},
		{"noon", TimeOfDay{}, true},
		{"", TimeOfDay{}, true},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDisplay12h(t *testing.T) {
	cases := []struct {
		in   TimeOfDay
		want string
	}{
		{TimeOfDay{0, 0}, "12:00 AM"},
		{TimeOfDay{0, 30}, "12:30 AM"},
		{TimeOfDay{9, 5}, "9:05 AM"},
		{TimeOfDay{12, 0}, "12:00 PM"},
		{TimeOfDay{14, 0}, "2:00 PM"},
		{TimeOfDay{23, 45}, "11:45 PM"},
	}
	for _, tc := range cases {
		if got := tc.in.Display12h(); got != tc.want {
			t.Errorf("%v.Display12h() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAddHoursWraps(t *testing.T) {
	cases := []struct {
		in    TimeOfDay
		delta int
		want  TimeOfDay
	}{
		{TimeOfDay{14, 30}, 1, TimeOfDay{15, 30}},
		{TimeOfDay{23, 0}, 2, TimeOfDay{1, 0}},
		{TimeOfDay{1, 15}, -3, TimeOfDay{22, 15}},
		{TimeOfDay{0, 0}, -1, TimeOfDay{23, 0}},
	}
	for _, tc := range cases {
		if got := tc.in.AddHours(tc.delta); got != tc.want {
			t.Errorf("%v.AddHours(%d) = %v, want %v", tc.in, tc.delta, got, tc.want)
		}
	}
}

func TestTimeOfDayOrdering(t *testing.T) {
	early := TimeOfDay{8, 0}
	late := TimeOfDay{21, 0}
	if !early.Before(late) {
		t.Fatal("expected 08:00 before 21:00")
	}
	if !late.After(early) {
		t.Fatal("expected 21:00 after 08:00")
	}
	if early.Before(early) || early.After(early) {
		t.Fatal("a time is neither before nor after itself")
	}
}

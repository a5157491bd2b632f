package journey

import (
	"testing"
	"time"
)

func parisRules(t *testing.T) Rules {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	r := DefaultRules()
	r.Location = loc
	return r
}

func at(t *testing.T, r Rules, s string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation("2006-01-02T15:04", s, r.location())
	if err != nil {
		t.Fatalf("bad time %q: %v", s, err)
	}
	return v
}

func TestComputeReflectionDelay(t *testing.T) {
	r := parisRules(t)
	pre := at(t, r, "2025-02-10T10:00")

	tests := []struct {
		now      string
		daysLeft int
		canSign  bool
	}{
		{"2025-02-10T18:00", 15, false},
		{"2025-02-20T00:00", 5, false},
		{"2025-02-20T23:30", 5, false},
		{"2025-02-24T23:59", 1, false},
		{"2025-02-25T00:00", 0, true},
		{"2025-02-25T09:00", 0, true},
		{"2025-03-30T12:00", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.now, func(t *testing.T) {
			got := ComputeReflectionDelay(&pre, at(t, r, tt.now), r)
			if got.DaysLeft != tt.daysLeft || got.CanSign != tt.canSign {
				t.Errorf("expected %d days / canSign=%v, got %+v", tt.daysLeft, tt.canSign, got)
			}
			if got.AvailableDate != "2025-02-25" {
				t.Errorf("expected available date 2025-02-25, got %q", got.AvailableDate)
			}
		})
	}
}

func TestComputeReflectionDelay_CrossesDSTChange(t *testing.T) {
	r := parisRules(t)
	pre := at(t, r, "2025-03-20T09:00")
	got := ComputeReflectionDelay(&pre, at(t, r, "2025-03-31T09:00"), r)
	if got.DaysLeft != 4 {
		t.Errorf("expected 4 calendar days across the DST change, got %d", got.DaysLeft)
	}
}

func TestComputeReflectionDelay_NoAnchor(t *testing.T) {
	got := ComputeReflectionDelay(nil, time.Now(), DefaultRules())
	if got.CanSign || got.DaysLeft != 0 || got.AvailableDate != "" {
		t.Errorf("expected closed delay without date, got %+v", got)
	}
}

func TestComputeReflectionDelay_NotEnforced(t *testing.T) {
	r := DefaultRules()
	r.Enforced = false
	pre := time.Date(2025, 2, 10, 10, 0, 0, 0, time.UTC)
	got := ComputeReflectionDelay(&pre, pre.Add(24*time.Hour), r)
	if !got.CanSign || got.DaysLeft != 0 {
		t.Errorf("expected open signatures, got %+v", got)
	}
	if got := ComputeReflectionDelay(nil, pre, r); !got.CanSign {
		t.Error("expected open signatures without anchor when not enforced")
	}
}

func TestCheckActSpacing(t *testing.T) {
	r := DefaultRules()
	pre := time.Date(2025, 2, 10, 17, 0, 0, 0, time.UTC)
	ok := time.Date(2025, 2, 24, 8, 0, 0, 0, time.UTC)
	tooSoon := time.Date(2025, 2, 23, 23, 0, 0, 0, time.UTC)

	if !CheckActSpacing(&pre, &ok, r) {
		t.Error("expected 14 days to be enough")
	}
	if CheckActSpacing(&pre, &tooSoon, r) {
		t.Error("expected 13 days to be refused")
	}
	if !CheckActSpacing(&pre, nil, r) {
		t.Error("no act booked is nothing to check")
	}
	if CheckActSpacing(nil, &ok, r) {
		t.Error("an act without pre-consultation is not well spaced")
	}
}

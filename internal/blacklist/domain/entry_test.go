package domain

import "testing"

func TestSeverity_Ordering(t *testing.T) {
	ordered := []RevokeReason{
		ReasonRotation,
		ReasonLogout,
		ReasonPasswordChange,
		ReasonReuseDetected,
		ReasonAdminAction,
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Severity() <= ordered[i-1].Severity() {
			t.Errorf("%s (%d) should outrank %s (%d)",
				ordered[i], ordered[i].Severity(), ordered[i-1], ordered[i-1].Severity())
		}
	}
}

func TestSeverity_UnknownRanksLowest(t *testing.T) {
	if got := RevokeReason("made_up").Severity(); got != 0 {
		t.Errorf("Severity = %d, want 0", got)
	}
	if RevokeReason("made_up").Severity() >= ReasonRotation.Severity() {
		t.Error("unknown reason must never outrank a known one")
	}
}

package domain

import (
	"testing"
	"time"

	"medcrm_backend/platform/apperr"
)

func TestNumberPrefix(t *testing.T) {
	got := NumberPrefix(time.Date(2025, time.January, 31, 23, 0, 0, 0, time.UTC))
	if got != "Q202501" {
		t.Fatalf("expected Q202501, got %s", got)
	}
}

func TestNextNumber(t *testing.T) {
	cases := []struct {
		latest string
		want   string
	}{
		{latest: "", want: "Q2025010001"},
		{latest: "Q2025010007", want: "Q2025010008"},
		{latest: "Q2025010999", want: "Q2025011000"},
	}
	for _, tc := range cases {
		got, err := NextNumber("Q202501", tc.latest)
		if err != nil {
			t.Fatalf("NextNumber(%q) failed: %v", tc.latest, err)
		}
		if got != tc.want {
			t.Fatalf("NextNumber(%q) = %s, want %s", tc.latest, got, tc.want)
		}
		if !IsValidNumber(got) {
			t.Fatalf("%s does not match the number format", got)
		}
	}
}

func TestNextNumber_SequenceExhausted(t *testing.T) {
	_, err := NextNumber("Q202501", "Q2025019999")
	if !apperr.HasCode(err, CodeQuoteSequenceExhausted) {
		t.Fatalf("expected sequence exhausted, got %v", err)
	}
}

func TestNextNumber_RejectsForeignPrefix(t *testing.T) {
	if _, err := NextNumber("Q202502", "Q2025010003"); err == nil {
		t.Fatalf("expected malformed latest number to fail")
	}
}

func TestIsValidNumber(t *testing.T) {
	valid := []string{"Q2025010001", "Q2099129999"}
	invalid := []string{"", "Q202501001", "Q20250100001", "X2025010001", "q2025010001"}
	for _, s := range valid {
		if !IsValidNumber(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	for _, s := range invalid {
		if IsValidNumber(s) {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}

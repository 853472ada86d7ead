package notify

import (
	"math"
	"testing"
	"time"
)

func TestTextRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want float64
	}{
		{"Benfica 1-0 Porto - Taremi 20'", "Benfica [1]-0 Porto - Taremi 20'", 0.9677},
		{"Benfica 1-0 Porto - Taremi 20'", "Benfica 2-0 Porto - Otamendi 67'", 0.7742},
		{"abcd", "bcde", 0.75},
		{"", "", 1},
	}
	for _, tc := range tests {
		if got := TextRatio(tc.a, tc.b); math.Abs(got-tc.want) > 0.0001 {
			t.Fatalf("unexpected ratio for %q/%q: got %.4f want %.4f", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestIsRepeat(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC)
	last := "Benfica 1-0 Porto - Taremi 20'"
	recent := now.Add(-2 * time.Minute)
	old := now.Add(-6 * time.Minute)

	if !IsRepeat(&recent, &last, "Benfica [1]-0 Porto - Taremi 20'", now) {
		t.Fatalf("expected near-identical text within window to be a repeat")
	}
	if IsRepeat(&old, &last, "Benfica [1]-0 Porto - Taremi 20'", now) {
		t.Fatalf("unexpected repeat outside window")
	}
	if IsRepeat(&recent, &last, "Benfica 2-0 Porto - Otamendi 67'", now) {
		t.Fatalf("unexpected repeat for a different goal")
	}
	if IsRepeat(nil, &last, last, now) || IsRepeat(&recent, nil, last, now) {
		t.Fatalf("unexpected repeat without previous notification")
	}
}

package fixtures

import "fmt"

// Wrong-score ratios above which a batch is discarded or flagged.
const (
	DiscardRatio = 0.4
	WarnRatio    = 0.2
)

type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictWarn
	VerdictDiscard
)

// Quality counts the checkable and inconsistent scores of a batch. Each side of each
// event is counted on its own.
type Quality struct {
	Checked int
	Wrong   int
}

func (q Quality) Ratio() float64 {
	if q.Checked == 0 {
		return 0
	}
	return float64(q.Wrong) / float64(q.Checked)
}

func (q Quality) Verdict() Verdict {
	ratio := q.Ratio()
	switch {
	case ratio > DiscardRatio:
		return VerdictDiscard
	case ratio > WarnRatio:
		return VerdictWarn
	default:
		return VerdictOK
	}
}

func (q Quality) String() string {
	return fmt.Sprintf("%d/%d (%.2f)", q.Wrong, q.Checked, q.Ratio())
}

// CheckQuality inspects the period scores of every event.
func CheckQuality(events []Event) Quality {
	var q Quality
	for _, ev := range events {
		for _, s := range []Score{ev.HomeScore, ev.AwayScore} {
			if !s.Checkable() {
				continue
			}
			q.Checked++
			if !s.Consistent() {
				q.Wrong++
			}
		}
	}
	return q
}

// Package notify fans match events out to tweet, webhook and broker destinations.
package notify

import "github.com/meneses-pt/goals.zone/internal/db"

// Kind is the stored event type of a rule.
type Kind int16

const (
	KindFirstVideo Kind = 1
	KindVideo      Kind = 2
	KindMirror     Kind = 3
	KindHighlights Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindFirstVideo:
		return "first_video"
	case KindVideo:
		return "video"
	case KindMirror:
		return "mirror"
	case KindHighlights:
		return "highlights"
	default:
		return "unknown"
	}
}

// Event is one of FirstVideo, Video, Mirror or Highlights.
type Event interface {
	Kind() Kind
	MatchID() int64
	isEvent()
}

// FirstVideo fires once per match when its first video is stored.
type FirstVideo struct {
	Match int64
}

// Video fires for a newly stored video goal.
type Video struct {
	VideoGoal db.VideoGoalRow
}

// Mirror fires for a newly discovered alternative link of a video goal.
type Mirror struct {
	VideoGoal db.VideoGoalRow
	Mirror    db.MirrorRow
}

// Highlights fires once per match when it finished and has videos.
type Highlights struct {
	Match int64
}

func (FirstVideo) Kind() Kind { return KindFirstVideo }
func (Video) Kind() Kind      { return KindVideo }
func (Mirror) Kind() Kind     { return KindMirror }
func (Highlights) Kind() Kind { return KindHighlights }

func (e FirstVideo) MatchID() int64 { return e.Match }
func (e Video) MatchID() int64      { return e.VideoGoal.MatchID }
func (e Mirror) MatchID() int64     { return e.VideoGoal.MatchID }
func (e Highlights) MatchID() int64 { return e.Match }

func (FirstVideo) isEvent() {}
func (Video) isEvent()      {}
func (Mirror) isEvent()     {}
func (Highlights) isEvent() {}

// subjectVideo returns the video goal an event is about, if any.
func subjectVideo(ev Event) *db.VideoGoalRow {
	switch e := ev.(type) {
	case Video:
		return &e.VideoGoal
	case Mirror:
		return &e.VideoGoal
	}
	return nil
}

// HasNameCodes reports whether both teams carry the short codes used in messages.
func HasNameCodes(state db.MatchState) bool {
	return state.HomeNameCode != nil && *state.HomeNameCode != "" &&
		state.AwayNameCode != nil && *state.AwayNameCode != ""
}

// MatchEvents lists the events a match is eligible for after a change. v is the video goal
// that triggered the evaluation, nil for fixture updates.
func MatchEvents(state db.MatchState, v *db.VideoGoalRow) []Event {
	if !HasNameCodes(state) {
		return nil
	}
	var out []Event
	if v != nil {
		if !v.MsgSent {
			out = append(out, Video{VideoGoal: *v})
		}
		if state.VideoCount > 0 && !state.FirstMsgSent {
			out = append(out, FirstVideo{Match: state.ID})
		}
		return out
	}
	if state.VideoCount > 0 && !state.HighlightsMsgSent && isFinished(state.Status) {
		out = append(out, Highlights{Match: state.ID})
	}
	return out
}

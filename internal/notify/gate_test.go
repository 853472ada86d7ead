package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/meneses-pt/goals.zone/internal/db"
)

type stubStore struct {
	mu      sync.Mutex
	state   db.MatchState
	videos  map[int64]db.VideoGoalRow
	mirrors map[int64]db.MirrorRow
	rules   map[int16][]db.NotifyRuleRow
}

func newStubStore() *stubStore {
	return &stubStore{
		state:   testState(),
		videos:  make(map[int64]db.VideoGoalRow),
		mirrors: make(map[int64]db.MirrorRow),
		rules:   make(map[int16][]db.NotifyRuleRow),
	}
}

func (s *stubStore) GetMatchState(context.Context, int64) (db.MatchState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *stubStore) GetVideoGoal(_ context.Context, id int64) (db.VideoGoalRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return db.VideoGoalRow{}, db.ErrNoRows
	}
	return v, nil
}

func (s *stubStore) GetMirror(_ context.Context, id int64) (db.MirrorRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mirrors[id]
	if !ok {
		return db.MirrorRow{}, db.ErrNoRows
	}
	return m, nil
}

func (s *stubStore) ListNotifyRules(_ context.Context, eventType int16) ([]db.NotifyRuleRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules[eventType], nil
}

func (s *stubStore) RecordNotification(_ context.Context, _ int64, at time.Time, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastNotifiedAt = &at
	s.state.LastNotifiedText = &text
	return nil
}

func (s *stubStore) MarkFirstVideoSent(context.Context, int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.FirstMsgSent = true
	return nil
}

func (s *stubStore) MarkHighlightsSent(context.Context, int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.HighlightsMsgSent = true
	return nil
}

func (s *stubStore) MarkVideoGoalSent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.videos[id]
	v.MsgSent = true
	s.videos[id] = v
	return nil
}

func (s *stubStore) MarkMirrorSent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mirrors[id]
	m.MsgSent = true
	s.mirrors[id] = m
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	calls    int
	failures int
	err      error
}

func (n *recordingNotifier) Deliver(_ context.Context, d Delivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.failures > 0 {
		n.failures--
		return n.err
	}
	n.messages = append(n.messages, d.Message)
	return nil
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []Alert
}

func (a *recordingAlerter) Alert(_ context.Context, alert Alert) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
}

func newTestGate(store Store, notifiers map[string]Notifier, alerter Alerter) *Gate {
	g := NewGate(store, nil, notifiers, alerter, Options{MaxAttempts: 3, Backoff: time.Second}, zerolog.Nop())
	g.sleep = func(context.Context, time.Duration) error { return nil }
	return g
}

func videoRule(id int64, destination string) db.NotifyRuleRow {
	return db.NotifyRuleRow{ID: id, Kind: db.RuleKindWebhook, Destination: destination, Message: "{{.VideoGoal.Title}}", EventType: int16(KindVideo)}
}

func TestGate_SendsVideoAndMarks(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	vg := testVideo()
	store.videos[vg.ID] = vg
	store.rules[int16(KindVideo)] = []db.NotifyRuleRow{videoRule(1, DestinationDiscord), videoRule(2, DestinationSlack)}
	discord, slack := &recordingNotifier{}, &recordingNotifier{}
	gate := newTestGate(store, map[string]Notifier{DestinationDiscord: discord, DestinationSlack: slack}, nil)

	report, err := gate.Send(context.Background(), Video{VideoGoal: vg})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if report.Delivered != 2 || !report.Marked {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !store.videos[vg.ID].MsgSent {
		t.Fatalf("expected video to be marked sent")
	}
	if store.state.LastNotifiedText == nil || *store.state.LastNotifiedText != *vg.Title {
		t.Fatalf("unexpected last notified text: %v", store.state.LastNotifiedText)
	}

	again, err := gate.Send(context.Background(), Video{VideoGoal: vg})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if !again.AlreadySent || len(discord.messages) != 1 {
		t.Fatalf("unexpected second send: %+v messages=%d", again, len(discord.messages))
	}
}

func TestGate_ConcurrentNearDuplicatesDeliverOnce(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	first := testVideo()
	second := testVideo()
	second.ID = 6
	second.Title = ptr("Benfica [1]-0 Porto - Di María 20'")
	store.videos[first.ID] = first
	store.videos[second.ID] = second
	store.rules[int16(KindVideo)] = []db.NotifyRuleRow{videoRule(1, DestinationDiscord)}
	discord := &recordingNotifier{}
	gate := newTestGate(store, map[string]Notifier{DestinationDiscord: discord}, nil)

	var wg sync.WaitGroup
	reports := make([]Report, 2)
	for i, vg := range []db.VideoGoalRow{first, second} {
		wg.Add(1)
		go func(i int, vg db.VideoGoalRow) {
			defer wg.Done()
			r, err := gate.Send(context.Background(), Video{VideoGoal: vg})
			if err != nil {
				t.Errorf("unexpected send error: %v", err)
			}
			reports[i] = r
		}(i, vg)
	}
	wg.Wait()

	if len(discord.messages) != 1 {
		t.Fatalf("unexpected deliveries: got %d want 1", len(discord.messages))
	}
	if reports[0].Repeat == reports[1].Repeat {
		t.Fatalf("expected exactly one repeat: %+v", reports)
	}
}

func TestGate_RetriesThenLeavesUnsentWhenAllFail(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.rules[int16(KindFirstVideo)] = []db.NotifyRuleRow{
		{ID: 1, Kind: db.RuleKindWebhook, Destination: DestinationIFTTT, Message: "{{.Match.HomeTeam}}"},
	}
	ifttt := &recordingNotifier{failures: 10, err: errors.New("unexpected status 500")}
	alerts := &recordingAlerter{}
	gate := newTestGate(store, map[string]Notifier{DestinationIFTTT: ifttt}, alerts)

	report, err := gate.Send(context.Background(), FirstVideo{Match: 10})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if report.Failed != 1 || report.Marked || store.state.FirstMsgSent {
		t.Fatalf("unexpected report: %+v", report)
	}
	if ifttt.calls != 3 {
		t.Fatalf("unexpected attempts: got %d want 3", ifttt.calls)
	}
	if len(alerts.alerts) != 1 || !alerts.alerts[0].Silent {
		t.Fatalf("unexpected alerts: %+v", alerts.alerts)
	}
}

func TestGate_TweetRateLimitIsNotRetriedOrAlerted(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.rules[int16(KindHighlights)] = []db.NotifyRuleRow{
		{ID: 1, Kind: db.RuleKindTweet, Destination: DestinationTwitter, Message: "{{.Match.Slug}}"},
		{ID: 2, Kind: db.RuleKindWebhook, Destination: DestinationSlack, Message: "{{.Match.Slug}}"},
	}
	tweets := &recordingNotifier{failures: 1, err: fmt.Errorf("tweet: %w", ErrRateLimited)}
	slack := &recordingNotifier{}
	alerts := &recordingAlerter{}
	gate := newTestGate(store, map[string]Notifier{DestinationTwitter: tweets, DestinationSlack: slack}, alerts)

	report, err := gate.Send(context.Background(), Highlights{Match: 10})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if tweets.calls != 1 || len(alerts.alerts) != 0 {
		t.Fatalf("unexpected tweet handling: calls=%d alerts=%d", tweets.calls, len(alerts.alerts))
	}
	if report.Delivered != 1 || report.Failed != 1 || !store.state.HighlightsMsgSent {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestGate_FilteredRulesStillMarkSent(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	m := db.MirrorRow{ID: 3, VideoGoalID: 5, URL: "https://dubz.co/v/1"}
	store.mirrors[m.ID] = m
	store.rules[int16(KindMirror)] = []db.NotifyRuleRow{
		{ID: 1, Kind: db.RuleKindWebhook, Destination: DestinationDiscord, Message: "{{.Mirror.URL}}", ExcludeTeams: []int64{7}},
	}
	discord := &recordingNotifier{}
	gate := newTestGate(store, map[string]Notifier{DestinationDiscord: discord}, nil)

	report, err := gate.Send(context.Background(), Mirror{VideoGoal: testVideo(), Mirror: m})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if report.Skipped != 1 || len(discord.messages) != 0 || !store.mirrors[m.ID].MsgSent {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestGate_EvaluateSendsVideoThenFirstVideo(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	vg := testVideo()
	store.videos[vg.ID] = vg
	store.rules[int16(KindVideo)] = []db.NotifyRuleRow{videoRule(1, DestinationDiscord)}
	store.rules[int16(KindFirstVideo)] = []db.NotifyRuleRow{
		{ID: 2, Kind: db.RuleKindWebhook, Destination: DestinationDiscord, Message: "first {{.Match.HomeCode}}-{{.Match.AwayCode}}"},
	}
	discord := &recordingNotifier{}
	gate := newTestGate(store, map[string]Notifier{DestinationDiscord: discord}, nil)

	reports, err := gate.Evaluate(context.Background(), 10, &vg)
	if err != nil {
		t.Fatalf("unexpected evaluate error: %v", err)
	}
	if len(reports) != 2 || reports[0].Kind != KindVideo || reports[1].Kind != KindFirstVideo {
		t.Fatalf("unexpected reports: %+v", reports)
	}
	if len(discord.messages) != 2 || discord.messages[1] != "first BEN-POR" {
		t.Fatalf("unexpected messages: %q", discord.messages)
	}
	if !store.state.FirstMsgSent {
		t.Fatalf("expected first video flag")
	}
}

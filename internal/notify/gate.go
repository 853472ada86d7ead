package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meneses-pt/goals.zone/internal/db"
	"github.com/meneses-pt/goals.zone/internal/globaltime"
)

// Store is the persistence the gate reads and updates under the match lock.
type Store interface {
	GetMatchState(ctx context.Context, matchID int64) (db.MatchState, error)
	GetVideoGoal(ctx context.Context, videoGoalID int64) (db.VideoGoalRow, error)
	GetMirror(ctx context.Context, mirrorID int64) (db.MirrorRow, error)
	ListNotifyRules(ctx context.Context, eventType int16) ([]db.NotifyRuleRow, error)
	RecordNotification(ctx context.Context, matchID int64, at time.Time, text string) error
	MarkFirstVideoSent(ctx context.Context, matchID int64) error
	MarkHighlightsSent(ctx context.Context, matchID int64) error
	MarkVideoGoalSent(ctx context.Context, videoGoalID int64) error
	MarkMirrorSent(ctx context.Context, mirrorID int64) error
}

type Options struct {
	// MaxAttempts bounds deliveries per rule. Tweets are attempted once.
	MaxAttempts int
	// Backoff is multiplied by the attempt number before each retry.
	Backoff time.Duration
}

// Report summarizes one Send.
type Report struct {
	Kind        Kind
	MatchID     int64
	AlreadySent bool
	Repeat      bool
	Rules       int
	Skipped     int
	Delivered   int
	Failed      int
	Marked      bool
}

// Gate is the single entry point for match notifications.
type Gate struct {
	store     Store
	locker    Locker
	notifiers map[string]Notifier
	alerter   Alerter
	opts      Options
	logger    zerolog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewGate builds a Gate. notifiers is keyed by rule destination; locker defaults to a
// MemoryLocker.
func NewGate(store Store, locker Locker, notifiers map[string]Notifier, alerter Alerter, opts Options, logger zerolog.Logger) *Gate {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	return &Gate{
		store:     store,
		locker:    locker,
		notifiers: notifiers,
		alerter:   alerter,
		opts:      opts,
		logger:    logger.With().Str("component", "notify").Logger(),
		sleep:     sleepContext,
	}
}

// Send refreshes the match under its lock, drops repeats and already sent events, fans
// out to every matching rule, then marks the event sent unless every delivery failed.
func (g *Gate) Send(ctx context.Context, ev Event) (Report, error) {
	report := Report{Kind: ev.Kind(), MatchID: ev.MatchID()}
	log := g.logger.With().Int64("match_id", report.MatchID).Str("event", report.Kind.String()).Logger()

	unlock, err := g.locker.Lock(ctx, report.MatchID)
	if err != nil {
		return report, fmt.Errorf("lock match %d: %w", report.MatchID, err)
	}
	defer unlock()

	state, err := g.store.GetMatchState(ctx, report.MatchID)
	if err != nil {
		return report, err
	}
	ev, sent, err := g.refresh(ctx, ev, state)
	if err != nil {
		return report, err
	}
	if sent {
		report.AlreadySent = true
		return report, nil
	}

	now := globaltime.UTC()
	var subjectText string
	if e, ok := ev.(Video); ok {
		subjectText = deref(e.VideoGoal.Title)
		if IsRepeat(state.LastNotifiedAt, state.LastNotifiedText, subjectText, now) {
			log.Info().Str("text", subjectText).Msg("repeat of last notification skipped")
			report.Repeat = true
			return report, nil
		}
	}

	rules, err := g.store.ListNotifyRules(ctx, int16(report.Kind))
	if err != nil {
		return report, err
	}
	report.Rules = len(rules)
	for _, rule := range rules {
		g.fanOut(ctx, log, rule, state, ev, &report)
	}

	if report.Failed > 0 && report.Delivered == 0 {
		log.Warn().Int("failed", report.Failed).Msg("every delivery failed, event left unsent")
		return report, nil
	}
	if _, ok := ev.(Video); ok {
		if err := g.store.RecordNotification(ctx, report.MatchID, now, subjectText); err != nil {
			return report, err
		}
	}
	if err := g.mark(ctx, ev); err != nil {
		return report, err
	}
	report.Marked = true
	log.Info().
		Int("rules", report.Rules).
		Int("delivered", report.Delivered).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("event sent")
	return report, nil
}

// Evaluate sends every event a match is eligible for. vg is the video that triggered the
// evaluation, nil after a fixture update. Failed events are logged and do not stop the rest.
func (g *Gate) Evaluate(ctx context.Context, matchID int64, vg *db.VideoGoalRow) ([]Report, error) {
	state, err := g.store.GetMatchState(ctx, matchID)
	if err != nil {
		return nil, err
	}
	events := MatchEvents(state, vg)
	reports := make([]Report, 0, len(events))
	for _, ev := range events {
		report, err := g.Send(ctx, ev)
		if err != nil {
			g.logger.Error().Err(err).Int64("match_id", matchID).Str("event", ev.Kind().String()).Msg("send event failed")
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// refresh reloads the event payload and reports whether it was already sent.
func (g *Gate) refresh(ctx context.Context, ev Event, state db.MatchState) (Event, bool, error) {
	switch e := ev.(type) {
	case FirstVideo:
		return e, state.FirstMsgSent, nil
	case Highlights:
		return e, state.HighlightsMsgSent, nil
	case Video:
		vg, err := g.store.GetVideoGoal(ctx, e.VideoGoal.ID)
		if err != nil {
			return nil, false, err
		}
		return Video{VideoGoal: vg}, vg.MsgSent, nil
	case Mirror:
		m, err := g.store.GetMirror(ctx, e.Mirror.ID)
		if err != nil {
			return nil, false, err
		}
		return Mirror{VideoGoal: e.VideoGoal, Mirror: m}, m.MsgSent, nil
	}
	return nil, false, fmt.Errorf("unknown event %T", ev)
}

func (g *Gate) mark(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case FirstVideo:
		return g.store.MarkFirstVideoSent(ctx, e.Match)
	case Highlights:
		return g.store.MarkHighlightsSent(ctx, e.Match)
	case Video:
		return g.store.MarkVideoGoalSent(ctx, e.VideoGoal.ID)
	case Mirror:
		return g.store.MarkMirrorSent(ctx, e.Mirror.ID)
	}
	return nil
}

func (g *Gate) fanOut(ctx context.Context, log zerolog.Logger, rule db.NotifyRuleRow, state db.MatchState, ev Event, report *Report) {
	ruleLog := log.With().Str("rule_kind", rule.Kind).Int64("rule_id", rule.ID).Str("destination", rule.Destination).Logger()

	if reason := Allows(rule, state, ev); reason != "" {
		ruleLog.Debug().Str("filter", reason).Msg("rule filtered out")
		report.Skipped++
		return
	}
	notifier, ok := g.notifiers[rule.Destination]
	if !ok || notifier == nil {
		ruleLog.Warn().Msg("no notifier for destination")
		report.Skipped++
		return
	}

	message, err := Render(rule.Message, state, ev)
	if err != nil {
		ruleLog.Error().Err(err).Msg("render message failed")
		report.Failed++
		return
	}

	d := Delivery{Rule: rule, Kind: ev.Kind(), MatchID: state.ID, Message: message}
	if err := g.deliver(ctx, notifier, d); err != nil {
		report.Failed++
		ruleLog.Error().Err(err).Msg("delivery failed")
		if !errors.Is(err, ErrRateLimited) && ctx.Err() == nil && g.alerter != nil {
			g.alerter.Alert(ctx, Alert{
				Text:    fmt.Sprintf("*%s message not sent!!*\n%s\n%v", rule.Destination, message, err),
				IsAlert: true,
				Silent:  true,
			})
		}
		return
	}
	report.Delivered++
}

func (g *Gate) deliver(ctx context.Context, n Notifier, d Delivery) error {
	attempts := g.opts.MaxAttempts
	if d.Rule.Destination == DestinationTwitter {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if i > 1 {
			if serr := g.sleep(ctx, time.Duration(i-1)*g.opts.Backoff); serr != nil {
				return err
			}
		}
		err = n.Deliver(ctx, d)
		if err == nil || errors.Is(err, ErrRateLimited) {
			return err
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

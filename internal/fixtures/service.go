package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/meneses-pt/goals.zone/internal/db"
	"github.com/meneses-pt/goals.zone/internal/globaltime"
	"github.com/meneses-pt/goals.zone/internal/notify"
	payloadschema "github.com/meneses-pt/goals.zone/schema"
)

// StaleAfter is how long a match without videos is kept after kickoff.
const StaleAfter = 7 * 24 * time.Hour

// ErrBatchDiscarded is returned when a batch has too many inconsistent scores to trust.
var ErrBatchDiscarded = errors.New("fixture batch discarded")

// Mode selects which listing a cycle pulls.
type Mode int

const (
	ModeLive Mode = iota
	ModeFullDay
	ModeFullDayInverse
)

func (m Mode) String() string {
	switch m {
	case ModeFullDay:
		return "full_day"
	case ModeFullDayInverse:
		return "full_day_inverse"
	default:
		return "live"
	}
}

// ParseMode accepts the names String returns.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "live":
		return ModeLive, nil
	case "full_day":
		return ModeFullDay, nil
	case "full_day_inverse":
		return ModeFullDayInverse, nil
	default:
		return ModeLive, fmt.Errorf("unknown fixtures mode %q", raw)
	}
}

type Fetcher interface {
	ScheduledEvents(ctx context.Context, day time.Time, inverse bool) ([]json.RawMessage, error)
	LiveEvents(ctx context.Context) ([]json.RawMessage, error)
}

type Store interface {
	SaveFixture(ctx context.Context, rec db.FixtureRecord) (db.FixtureResult, error)
	DeleteStaleMatches(ctx context.Context, cutoff time.Time) (int64, error)
}

// Evaluator decides which match-level notifications a stored fixture now qualifies for.
type Evaluator interface {
	Evaluate(ctx context.Context, matchID int64, vg *db.VideoGoalRow) ([]notify.Report, error)
}

type Heartbeater interface {
	Heartbeat(ctx context.Context, kind notify.Heartbeat)
}

// Stats summarizes one Sync.
type Stats struct {
	Mode      Mode
	Fetched   int
	Invalid   int
	Quality   Quality
	Discarded bool
	Saved     int
	Created   int
	Failed    int
	Deleted   int64
}

type Service struct {
	fetcher   Fetcher
	store     Store
	evaluator Evaluator
	alerter   notify.Alerter
	heartbeat Heartbeater
	logger    zerolog.Logger
}

// NewService wires a Service. evaluator and heartbeat may be nil.
func NewService(fetcher Fetcher, store Store, evaluator Evaluator, alerter notify.Alerter, heartbeat Heartbeater, logger zerolog.Logger) *Service {
	if alerter == nil {
		alerter = notify.LogAlerter{Logger: logger}
	}
	return &Service{
		fetcher:   fetcher,
		store:     store,
		evaluator: evaluator,
		alerter:   alerter,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// Sync fetches one listing, checks its scores and stores every event. Events that fail
// are retried once; whatever still fails is returned joined. Matches older than
// StaleAfter that never got a video are removed at the end.
func (s *Service) Sync(ctx context.Context, mode Mode) (Stats, error) {
	stats := Stats{Mode: mode}
	log := s.logger.With().Str("mode", mode.String()).Logger()

	raw, err := s.fetch(ctx, mode)
	if err != nil {
		return stats, err
	}
	stats.Fetched = len(raw)

	events := s.decode(ctx, raw, &stats)
	stats.Quality = CheckQuality(events)
	switch stats.Quality.Verdict() {
	case VerdictDiscard:
		stats.Discarded = true
		log.Warn().Str("quality", stats.Quality.String()).Msg("discarding fixture batch")
		s.alerter.Alert(ctx, notify.Alert{Text: qualityMessage("HIGH", stats.Quality), IsAlert: true})
		return stats, ErrBatchDiscarded
	case VerdictWarn:
		log.Warn().Str("quality", stats.Quality.String()).Msg("fixture batch has wrong scores")
		s.alerter.Alert(ctx, notify.Alert{Text: qualityMessage("LOW", stats.Quality), IsAlert: true, Silent: true})
	}

	touched := make(map[int64]struct{})
	var failed []Event
	for _, ev := range events {
		if err := s.apply(ctx, ev, touched, &stats); err != nil {
			failed = append(failed, ev)
		}
	}
	var errs []error
	if len(failed) > 0 {
		log.Info().Int("failed", len(failed)).Msg("retrying failed fixtures")
		for _, ev := range failed {
			if err := s.apply(ctx, ev, touched, &stats); err != nil {
				stats.Failed++
				errs = append(errs, fmt.Errorf("fixture %d (%s): %w", ev.ID, ev.Title(), err))
			}
		}
	}

	if s.evaluator != nil {
		for matchID := range touched {
			if _, err := s.evaluator.Evaluate(ctx, matchID, nil); err != nil {
				log.Error().Err(err).Int64("match_id", matchID).Msg("evaluate match notifications failed")
			}
		}
	}

	deleted, err := s.store.DeleteStaleMatches(ctx, globaltime.UTC().Add(-StaleAfter))
	if err != nil {
		errs = append(errs, err)
	} else {
		stats.Deleted = deleted
	}

	if s.heartbeat != nil {
		s.heartbeat.Heartbeat(ctx, notify.HeartbeatMatches)
	}

	log.Info().
		Int("fetched", stats.Fetched).
		Int("saved", stats.Saved).
		Int("created", stats.Created).
		Int("failed", stats.Failed).
		Int64("deleted", stats.Deleted).
		Msg("fixtures synced")
	return stats, errors.Join(errs...)
}

func (s *Service) fetch(ctx context.Context, mode Mode) ([]json.RawMessage, error) {
	if mode == ModeLive {
		events, err := s.fetcher.LiveEvents(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch live events: %w", err)
		}
		return events, nil
	}

	day := globaltime.UTC()
	events, err := s.fetcher.ScheduledEvents(ctx, day, false)
	if err != nil {
		return nil, fmt.Errorf("fetch scheduled events: %w", err)
	}
	if mode != ModeFullDayInverse {
		return events, nil
	}

	inverse, err := s.fetcher.ScheduledEvents(ctx, day, true)
	if err != nil {
		s.logger.Error().Err(err).Msg("fetch inverse events failed")
		s.alerter.Alert(ctx, notify.Alert{Text: "*Error fetching inverse events!!*\n" + err.Error()})
		return events, nil
	}
	return append(events, inverse...), nil
}

// decode drops events that do not match the provider schema. Each one raises an alert so a
// format change upstream is noticed.
func (s *Service) decode(ctx context.Context, raw []json.RawMessage, stats *Stats) []Event {
	events := make([]Event, 0, len(raw))
	for _, payload := range raw {
		if _, err := payloadschema.ValidateFixtureEvent(payload); err != nil {
			stats.Invalid++
			s.logger.Error().Err(err).Msg("invalid fixture payload")
			s.alerter.Alert(ctx, notify.Alert{Text: "*Invalid fixture payload*\n" + err.Error(), IsAlert: true})
			continue
		}
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			stats.Invalid++
			s.logger.Error().Err(err).Msg("decode fixture payload")
			continue
		}
		events = append(events, ev)
	}
	return events
}

func (s *Service) apply(ctx context.Context, ev Event, touched map[int64]struct{}, stats *Stats) error {
	result, err := s.store.SaveFixture(ctx, ev.Record())
	if err != nil {
		s.logger.Error().Err(err).Int64("event_id", ev.ID).Str("fixture", ev.Title()).Msg("save fixture failed")
		s.alerter.Alert(ctx, notify.Alert{
			Text:    fmt.Sprintf("*Error processing match [%s]*\n%s", ev.Title(), err.Error()),
			IsAlert: true,
		})
		return err
	}
	stats.Saved++
	if result.Created {
		stats.Created++
	}
	for _, id := range result.MatchIDs {
		touched[id] = struct{}{}
	}
	return nil
}

func qualityMessage(level string, q Quality) string {
	return fmt.Sprintf("*%s* __Wrong scores detected__\n*Wrong scores %d*\n*Total scores %d*\nPercentage: %.0f%%\n",
		level, q.Wrong, q.Checked, q.Ratio()*100)
}

// Package videos turns reddit posts into stored video goals and discovers their mirrors.
package videos

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/meneses-pt/goals.zone/internal/db"
	"github.com/meneses-pt/goals.zone/internal/globaltime"
	"github.com/meneses-pt/goals.zone/internal/langdetect"
	"github.com/meneses-pt/goals.zone/internal/notify"
	"github.com/meneses-pt/goals.zone/internal/reddit"
	"github.com/meneses-pt/goals.zone/internal/resolver"
)

// Source is the subreddit a video came from.
type Source string

const (
	SourceSoccer     Source = "soccer"
	SourceHighlights Source = "footballhighlights"
)

const (
	maxVideoTitle      = 195
	maxHighlightsTitle = 180
	highlightsPrefix   = "[Highlights] "
	// highlightsLookAhead lets a highlights post precede its match's kickoff.
	highlightsLookAhead = 24 * time.Hour
	autoModerator       = "AutoModerator"
)

type Store interface {
	LookupPost(ctx context.Context, permalink string) (db.PostLookup, error)
	CreateVideoGoal(ctx context.Context, in db.NewVideoGoal) (db.VideoGoalRow, bool, error)
	SaveUnmatchedPost(ctx context.Context, post db.UnmatchedPost) (bool, error)
	AnyTeamSimilar(ctx context.Context, name string) (bool, error)
	GetVideoGoal(ctx context.Context, videoGoalID int64) (db.VideoGoalRow, error)
	GetMatchState(ctx context.Context, matchID int64) (db.MatchState, error)
	SetNextMirrorsCheck(ctx context.Context, videoGoalID int64, next time.Time) error
	SetAutoModeratorCommentID(ctx context.Context, videoGoalID int64, commentID string) error
	UpsertMirror(ctx context.Context, rec db.MirrorRecord) (db.MirrorRow, error)
}

type Resolver interface {
	Resolve(ctx context.Context, title string, postCreatedAt, searchUntil time.Time) (resolver.Outcome, error)
}

type CommentSource interface {
	Comments(ctx context.Context, permalink, commentID string) ([]reddit.Comment, error)
}

// Notifier is the notification gate.
type Notifier interface {
	Send(ctx context.Context, ev notify.Event) (notify.Report, error)
	Evaluate(ctx context.Context, matchID int64, vg *db.VideoGoalRow) ([]notify.Report, error)
}

// Action is what a fetched post needs.
type Action int

const (
	ActionSkip Action = iota
	ActionNew
	ActionRecheck
)

// Result describes one processed post.
type Result struct {
	Outcome   resolver.Outcome
	VideoGoal *db.VideoGoalRow
	Created   bool
	NotFound  bool
	Alerted   bool
}

type Service struct {
	store    Store
	resolver Resolver
	comments CommentSource
	notifier Notifier
	alerter  notify.Alerter
	logger   zerolog.Logger
}

func NewService(store Store, r Resolver, comments CommentSource, notifier Notifier, alerter notify.Alerter, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		resolver: r,
		comments: comments,
		notifier: notifier,
		alerter:  alerter,
		logger:   logger.With().Str("component", "videos").Logger(),
	}
}

// PostLinks returns the anchors of a post body.
func PostLinks(post reddit.Post) []Link {
	if post.SelftextHTML == nil {
		return nil
	}
	return ExtractLinks(*post.SelftextHTML)
}

// Eligible reports whether a post of source can carry a video at all.
func Eligible(source Source, post reddit.Post) bool {
	if source == SourceHighlights {
		return len(PostLinks(post)) > 0
	}
	return post.ShouldProcess()
}

// Classify decides between processing a post as new, rechecking its mirrors, or skipping it.
func (s *Service) Classify(ctx context.Context, source Source, post reddit.Post, now time.Time) (Action, db.PostLookup, error) {
	if !Eligible(source, post) {
		return ActionSkip, db.PostLookup{}, nil
	}
	lookup, err := s.store.LookupPost(ctx, post.Permalink)
	if err != nil {
		return ActionSkip, lookup, err
	}
	if !lookup.Found {
		return ActionNew, lookup, nil
	}
	if lookup.VideoGoalID != nil && lookup.NextMirrorsCheck != nil && lookup.NextMirrorsCheck.Before(now) {
		return ActionRecheck, lookup, nil
	}
	return ActionSkip, lookup, nil
}

// ProcessPost resolves a post that was never seen, stores its video goal and notifies.
func (s *Service) ProcessPost(ctx context.Context, source Source, post reddit.Post) (Result, error) {
	log := s.logger.With().Str("permalink", post.Permalink).Str("source", string(source)).Logger()
	title := post.CleanTitle()
	created := post.CreatedAt()
	until := created
	var links []Link
	if source == SourceHighlights {
		links = PostLinks(post)
		if len(links) == 0 {
			return Result{}, fmt.Errorf("highlights post %s has no links", post.Permalink)
		}
		until = created.Add(highlightsLookAhead)
	}

	out, err := s.resolver.Resolve(ctx, title, created, until)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s: %w", post.Permalink, err)
	}
	result := Result{Outcome: out}
	if !out.Resolved {
		result.NotFound = true
		result.Alerted, err = s.recordNotFound(ctx, post, title, out)
		return result, err
	}

	in := db.NewVideoGoal{
		MatchID:          out.Match.MatchID,
		Permalink:        post.Permalink,
		Source:           string(source),
		Author:           post.Author,
		TitleLanguage:    optional(langdetect.TitleLanguage(title)),
		NextMirrorsCheck: globaltime.UTC(),
		Now:              globaltime.UTC(),
	}
	switch source {
	case SourceHighlights:
		in.URL = links[0].URL
		in.Title = highlightsPrefix + truncateRunes(title, maxHighlightsTitle, "..")
		in.LinkTitle = optional(links[0].Text)
	default:
		if post.URL != nil {
			in.URL = *post.URL
		}
		in.Title = truncateRunes(title, maxVideoTitle, "..")
		in.Minute = ParseMinute(resolvedMinute(out))
	}

	vg, createdRow, err := s.store.CreateVideoGoal(ctx, in)
	if err != nil {
		return result, fmt.Errorf("store video goal %s: %w", post.Permalink, err)
	}
	if !createdRow {
		log.Debug().Msg("post already claimed")
		return result, nil
	}
	result.VideoGoal = &vg
	result.Created = true
	log.Info().Int64("match_id", vg.MatchID).Int64("video_goal_id", vg.ID).Str("resolved_by", string(out.Source)).Msg("video goal stored")

	if s.notifier != nil {
		if _, err := s.notifier.Evaluate(ctx, vg.MatchID, &vg); err != nil {
			log.Error().Err(err).Msg("evaluate notifications failed")
		}
	}
	if err := s.FindMirrors(ctx, source, vg, nil); err != nil {
		log.Warn().Err(err).Msg("mirror discovery failed")
	}
	return result, nil
}

// Recheck rescans the mirrors of a stored video goal.
func (s *Service) Recheck(ctx context.Context, source Source, videoGoalID int64, post reddit.Post) error {
	vg, err := s.store.GetVideoGoal(ctx, videoGoalID)
	if err != nil {
		return err
	}
	var links []Link
	if source == SourceHighlights {
		links = PostLinks(post)
	}
	return s.FindMirrors(ctx, source, vg, links)
}

func (s *Service) recordNotFound(ctx context.Context, post reddit.Post, title string, out resolver.Outcome) (bool, error) {
	pair, ok := out.NominalPair()
	if !ok {
		if _, err := s.store.SaveUnmatchedPost(ctx, db.UnmatchedPost{Permalink: post.Permalink}); err != nil {
			return false, err
		}
		return false, nil
	}

	stored := truncateRunes(title, maxVideoTitle, "..")
	inserted, err := s.store.SaveUnmatchedPost(ctx, db.UnmatchedPost{
		Permalink:     post.Permalink,
		Title:         &stored,
		HomeTeamStr:   optional(pair.Home),
		AwayTeamStr:   optional(pair.Away),
		TitleLanguage: optional(langdetect.TitleLanguage(title)),
	})
	if err != nil {
		return false, err
	}
	if !inserted || s.alerter == nil {
		return false, nil
	}

	known, err := s.anyKnownTeam(ctx, pair.Home, pair.Away)
	if err != nil {
		return false, err
	}
	if !known {
		return false, nil
	}
	s.alerter.Alert(ctx, notify.Alert{
		Text:   fmt.Sprintf("__Match not found in database__\n*%s*\n*%s*\n%s", pair.Home, pair.Away, title),
		Silent: true,
	})
	return true, nil
}

func (s *Service) anyKnownTeam(ctx context.Context, names ...string) (bool, error) {
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		ok, err := s.store.AnyTeamSimilar(ctx, name)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// FindMirrors schedules the next scan and stores the mirrors found in the post's comments.
func (s *Service) FindMirrors(ctx context.Context, source Source, vg db.VideoGoalRow, postLinks []Link) error {
	now := globaltime.UTC()
	if err := s.store.SetNextMirrorsCheck(ctx, vg.ID, NextMirrorsCheck(vg.CreatedAt, now)); err != nil {
		return err
	}
	if vg.Permalink == nil || s.comments == nil {
		return nil
	}

	switch source {
	case SourceHighlights:
		for _, link := range postLinks {
			s.storeMirror(ctx, vg, link, deref(vg.Author))
		}
		comments, err := s.comments.Comments(ctx, *vg.Permalink, "")
		if err != nil {
			s.alertMirrorFailure(ctx, err)
			return err
		}
		s.walkComments(ctx, vg, comments)
	default:
		return s.findSoccerMirrors(ctx, vg)
	}
	return nil
}

func (s *Service) findSoccerMirrors(ctx context.Context, vg db.VideoGoalRow) error {
	commentID := deref(vg.AutoModeratorCommentID)
	if commentID == "" {
		comments, err := s.comments.Comments(ctx, *vg.Permalink, "")
		if err != nil {
			return err
		}
		for _, c := range comments {
			if c.Author == autoModerator {
				commentID = c.ID
				break
			}
		}
		if commentID == "" {
			s.logger.Debug().Int64("video_goal_id", vg.ID).Msg("no AutoModerator comment yet")
			return nil
		}
		if err := s.store.SetAutoModeratorCommentID(ctx, vg.ID, commentID); err != nil {
			return err
		}
	}

	thread, err := s.comments.Comments(ctx, *vg.Permalink, commentID)
	if err != nil {
		return err
	}
	if len(thread) == 0 {
		return nil
	}
	for _, reply := range thread[0].Replies {
		links := extractReplyLinks(reply.BodyHTML)
		if len(links) == 0 {
			links = ExtractURLs(reply.Body)
		}
		for _, link := range links {
			s.storeMirror(ctx, vg, link, reply.Author)
		}
	}
	return nil
}

func (s *Service) walkComments(ctx context.Context, vg db.VideoGoalRow, comments []reddit.Comment) {
	for _, c := range comments {
		for _, link := range ExtractLinks(c.BodyHTML) {
			s.storeMirror(ctx, vg, link, c.Author)
		}
		s.walkComments(ctx, vg, c.Replies)
	}
}

// storeMirror upserts one candidate and notifies when it was never sent.
func (s *Service) storeMirror(ctx context.Context, vg db.VideoGoalRow, link Link, author string) {
	if !validURL(link.URL) {
		return
	}
	rec, ok := mirrorRecord(vg, link.Text, link.URL, author)
	if !ok {
		return
	}
	row, err := s.store.UpsertMirror(ctx, rec)
	if err != nil {
		s.logger.Error().Err(err).Int64("video_goal_id", vg.ID).Str("url", link.URL).Msg("store mirror failed")
		return
	}
	if row.MsgSent || s.notifier == nil {
		return
	}
	state, err := s.store.GetMatchState(ctx, vg.MatchID)
	if err != nil {
		s.logger.Error().Err(err).Int64("match_id", vg.MatchID).Msg("load match for mirror failed")
		return
	}
	if !notify.HasNameCodes(state) {
		return
	}
	if _, err := s.notifier.Send(ctx, notify.Mirror{VideoGoal: vg, Mirror: row}); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error().Err(err).Int64("mirror_id", row.ID).Msg("send mirror failed")
	}
}

func (s *Service) alertMirrorFailure(ctx context.Context, err error) {
	if s.alerter == nil || ctx.Err() != nil {
		return
	}
	s.alerter.Alert(ctx, notify.Alert{Text: "*find mirrors exception*\n" + err.Error(), IsAlert: true, Silent: true})
}

func resolvedMinute(out resolver.Outcome) string {
	if out.Source == resolver.SourceNER {
		return out.NER.Minute
	}
	return out.Regex.Minute
}

var firstNumber = regexp.MustCompile(`\d+`)

// ParseMinute keeps the first number of the first 12 characters: "90'+4" -> "90".
func ParseMinute(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	raw = truncateRunes(raw, 12, "")
	m := firstNumber.FindString(raw)
	if m == "" {
		return nil
	}
	return &m
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

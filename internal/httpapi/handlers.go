package httpapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meneses-pt/goals.zone/internal/db"
	"github.com/meneses-pt/goals.zone/internal/extract"
	"github.com/meneses-pt/goals.zone/internal/globaltime"
	"github.com/meneses-pt/goals.zone/internal/resolver"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
	highlightsAhead = 24 * time.Hour
)

type mirrorItem struct {
	ID      int64   `json:"id"`
	URL     string  `json:"url"`
	Title   *string `json:"title,omitempty"`
	Author  *string `json:"author,omitempty"`
	MsgSent bool    `json:"msg_sent"`
}

type videoItem struct {
	ID        int64        `json:"id"`
	UUID      string       `json:"uuid"`
	MatchID   int64        `json:"match_id"`
	Source    string       `json:"source"`
	URL       *string      `json:"url,omitempty"`
	Title     *string      `json:"title,omitempty"`
	Minute    *string      `json:"minute,omitempty"`
	Author    *string      `json:"author,omitempty"`
	Permalink *string      `json:"permalink,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Mirrors   []mirrorItem `json:"mirrors,omitempty"`
}

type matchItem struct {
	ID         int64      `json:"id"`
	Slug       string     `json:"slug"`
	Status     string     `json:"status"`
	Score      *string    `json:"score,omitempty"`
	Datetime   *time.Time `json:"datetime,omitempty"`
	HomeTeam   string     `json:"home_team"`
	AwayTeam   string     `json:"away_team"`
	Tournament *string    `json:"tournament,omitempty"`
	Category   *string    `json:"category,omitempty"`
}

type nerLogItem struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	RegexHomeTeam *string   `json:"regex_home_team,omitempty"`
	RegexAwayTeam *string   `json:"regex_away_team,omitempty"`
	NerHomeTeam   *string   `json:"ner_home_team,omitempty"`
	NerAwayTeam   *string   `json:"ner_away_team,omitempty"`
	TitleLanguage *string   `json:"title_language,omitempty"`
	Type          string    `json:"type"`
	Reviewed      bool      `json:"reviewed"`
	CreatedAt     time.Time `json:"created_at"`
}

type resolveRequest struct {
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	Source    string `json:"source"`
}

type teamsItem struct {
	Home   string `json:"home,omitempty"`
	Away   string `json:"away,omitempty"`
	Minute string `json:"minute,omitempty"`
}

type resolveResponse struct {
	Resolved   bool       `json:"resolved"`
	MatchID    *int64     `json:"match_id,omitempty"`
	Kickoff    *time.Time `json:"kickoff,omitempty"`
	HomeTeam   string     `json:"home_team,omitempty"`
	AwayTeam   string     `json:"away_team,omitempty"`
	Source     string     `json:"source,omitempty"`
	Swapped    bool       `json:"swapped"`
	Candidates int        `json:"candidates"`
	Regex      teamsItem  `json:"regex"`
	NER        teamsItem  `json:"ner"`
	Agreement  string     `json:"agreement"`
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error().Err(err).Msg("database ping failed")
		return unavailable(c, "Database unavailable")
	}
	return success(c, map[string]any{
		"service": "goals-zone",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	day := globaltime.UTC().Truncate(24 * time.Hour)
	if raw := strings.TrimSpace(c.QueryParam("day")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return failValidation(c, map[string]string{"day": "must be YYYY-MM-DD"})
		}
		day = parsed.UTC()
	}

	stats, err := s.store.QueryStats(c.Request().Context(), day, day.Add(24*time.Hour))
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleRecentVideos(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	rows, err := s.store.ListRecentVideoGoals(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list recent videos failed")
		return internalError(c, "Failed to load videos")
	}

	items := make([]videoItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toVideoItem(row, nil))
	}
	return success(c, map[string]any{"items": items})
}

func (s *Server) handleMatchVideos(c echo.Context) error {
	matchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || matchID <= 0 {
		return failValidation(c, map[string]string{"id": "must be a positive integer"})
	}
	ctx := c.Request().Context()

	state, err := s.store.GetMatchState(ctx, matchID)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Match not found")
		}
		s.logger.Error().Err(err).Int64("match_id", matchID).Msg("load match failed")
		return internalError(c, "Failed to load match")
	}
	rows, err := s.store.ListMatchVideoGoals(ctx, matchID)
	if err != nil {
		s.logger.Error().Err(err).Int64("match_id", matchID).Msg("list match videos failed")
		return internalError(c, "Failed to load videos")
	}
	mirrors, err := s.store.ListMatchMirrors(ctx, matchID)
	if err != nil {
		s.logger.Error().Err(err).Int64("match_id", matchID).Msg("list match mirrors failed")
		return internalError(c, "Failed to load mirrors")
	}

	items := make([]videoItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toVideoItem(row, mirrors[row.ID]))
	}
	return success(c, map[string]any{
		"match": toMatchItem(state),
		"items": items,
	})
}

func (s *Server) handleNerLogs(c echo.Context) error {
	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 100000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}
	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"page_size": err.Error()})
	}
	unreviewed := strings.EqualFold(strings.TrimSpace(c.QueryParam("unreviewed")), "true")

	rows, err := s.store.ListNerLogs(c.Request().Context(), pageSize, (page-1)*pageSize, unreviewed)
	if err != nil {
		s.logger.Error().Err(err).Msg("list ner logs failed")
		return internalError(c, "Failed to load NER logs")
	}

	items := make([]nerLogItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, nerLogItem{
			ID:            row.ID,
			Title:         row.Title,
			RegexHomeTeam: row.RegexHomeTeam,
			RegexAwayTeam: row.RegexAwayTeam,
			NerHomeTeam:   row.NerHomeTeam,
			NerAwayTeam:   row.NerAwayTeam,
			TitleLanguage: row.TitleLanguage,
			Type: string(extract.Classify(
				deref(row.RegexHomeTeam), deref(row.RegexAwayTeam),
				deref(row.NerHomeTeam), deref(row.NerAwayTeam),
			)),
			Reviewed:  row.Reviewed,
			CreatedAt: row.CreatedAt,
		})
	}
	return success(c, map[string]any{
		"items":     items,
		"page":      page,
		"page_size": pageSize,
	})
}

func (s *Server) handleReviewNerLog(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return failValidation(c, map[string]string{"id": "must be a positive integer"})
	}
	if err := s.store.MarkNerLogReviewed(c.Request().Context(), id); err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "NER log not found")
		}
		s.logger.Error().Err(err).Int64("ner_log_id", id).Msg("review ner log failed")
		return internalError(c, "Failed to update NER log")
	}
	return success(c, map[string]any{"id": id, "reviewed": true})
}

func (s *Server) handleResolve(c echo.Context) error {
	if s.resolver == nil {
		return unavailable(c, "Resolver is not configured")
	}

	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON object"})
	}
	fieldErrors := map[string]string{}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		fieldErrors["title"] = "is required"
	}
	created := globaltime.UTC()
	if raw := strings.TrimSpace(req.CreatedAt); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fieldErrors["created_at"] = "must be RFC3339"
		} else {
			created = parsed.UTC()
		}
	}
	until := created
	switch strings.TrimSpace(req.Source) {
	case "", "soccer":
	case "footballhighlights":
		until = created.Add(highlightsAhead)
	default:
		fieldErrors["source"] = "must be soccer or footballhighlights"
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	out, err := s.resolver.Resolve(c.Request().Context(), title, created, until)
	if err != nil {
		s.logger.Error().Err(err).Str("title", title).Msg("resolve failed")
		return internalError(c, "Failed to resolve title")
	}
	return success(c, toResolveResponse(out))
}

func toResolveResponse(out resolver.Outcome) resolveResponse {
	resp := resolveResponse{
		Resolved:   out.Resolved,
		Swapped:    out.Swapped,
		Candidates: len(out.Candidates),
		Regex:      teamsItem{Home: out.Regex.Home, Away: out.Regex.Away, Minute: out.Regex.Minute},
		NER:        teamsItem{Home: out.NER.Home, Away: out.NER.Away, Minute: out.NER.Minute},
		Agreement:  string(extract.Classify(out.Regex.Home, out.Regex.Away, out.NER.Home, out.NER.Away)),
	}
	if out.Resolved {
		id := out.Match.MatchID
		kickoff := out.Match.Datetime
		resp.MatchID = &id
		resp.Kickoff = &kickoff
		resp.HomeTeam = out.Match.HomeName
		resp.AwayTeam = out.Match.AwayName
		resp.Source = string(out.Source)
	} else if pair, ok := out.NominalPair(); ok {
		resp.HomeTeam = pair.Home
		resp.AwayTeam = pair.Away
	}
	return resp
}

func toVideoItem(row db.VideoGoalRow, mirrors []db.MirrorRow) videoItem {
	item := videoItem{
		ID:        row.ID,
		UUID:      row.UUID,
		MatchID:   row.MatchID,
		Source:    row.Source,
		URL:       row.URL,
		Title:     row.Title,
		Minute:    row.Minute,
		Author:    row.Author,
		Permalink: row.Permalink,
		CreatedAt: row.CreatedAt,
	}
	for _, m := range mirrors {
		item.Mirrors = append(item.Mirrors, mirrorItem{
			ID:      m.ID,
			URL:     m.URL,
			Title:   m.Title,
			Author:  m.Author,
			MsgSent: m.MsgSent,
		})
	}
	return item
}

func toMatchItem(state db.MatchState) matchItem {
	return matchItem{
		ID:         state.ID,
		Slug:       state.Slug,
		Status:     state.Status,
		Score:      state.Score,
		Datetime:   state.Datetime,
		HomeTeam:   state.HomeName,
		AwayTeam:   state.AwayName,
		Tournament: state.TournamentName,
		Category:   state.CategoryName,
	}
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

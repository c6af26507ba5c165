package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"subnet-nexus/internal/orchestrator"
	"subnet-nexus/internal/ranking"
	"subnet-nexus/internal/storage"
)

const (
	defaultHistoryDays  = 30
	maxHistoryDays      = 365
	maxCompareSubnets   = 10
	maxLeaderboardLimit = 50
)

// apiServer serves the JSON API over the current score records.
type apiServer struct {
	scoreStore   storage.ScoreStore
	historyStore storage.HistoryStore
	orch         *orchestrator.Orchestrator
	topN         int
	logger       zerolog.Logger

	mu             sync.Mutex
	rescoreRunning bool
}

func newAPIServer(scoreStore storage.ScoreStore, historyStore storage.HistoryStore, orch *orchestrator.Orchestrator, topN int, logger zerolog.Logger) *apiServer {
	return &apiServer{
		scoreStore:   scoreStore,
		historyStore: historyStore,
		orch:         orch,
		topN:         topN,
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/scores", s.handleListScores)
	mux.HandleFunc("GET /api/scores/{netuid}", s.handleGetScore)
	mux.HandleFunc("GET /api/scores/{netuid}/history", s.handleGetHistory)
	mux.HandleFunc("GET /api/leaderboards", s.handleLeaderboards)
	mux.HandleFunc("POST /api/compare", s.handleCompare)
	mux.HandleFunc("GET /api/stats/overview", s.handleOverview)
	mux.HandleFunc("POST /api/rescore", s.handleRescore)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// GET /api/scores?category=&minScore=&maxScore=&search=&sortBy=&order=&limit=&offset=
func (s *apiServer) handleListScores(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := storage.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		SortBy:   storage.SortField(q.Get("sortBy")),
		Order:    storage.SortOrder(q.Get("order")),
	}
	filter.MinScore = intQuery(q.Get("minScore"), 0)
	filter.MaxScore = intQuery(q.Get("maxScore"), 0)
	filter.Limit = intQuery(q.Get("limit"), 0)
	filter.Offset = intQuery(q.Get("offset"), 0)

	records, total, err := s.scoreStore.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list scores", err)
		return
	}

	data := make([]scoreResponse, 0, len(records))
	for _, rec := range records {
		data = append(data, toScoreResponse(rec))
	}
	s.writeJSON(w, http.StatusOK, listScoresResponse{
		Data:   data,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// GET /api/scores/{netuid}
func (s *apiServer) handleGetScore(w http.ResponseWriter, r *http.Request) {
	netuid, ok := s.parseNetuid(w, r)
	if !ok {
		return
	}

	rec, err := s.scoreStore.GetByNetuid(r.Context(), netuid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "subnet has not been scored", nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load score", err)
		return
	}
	s.writeJSON(w, http.StatusOK, toScoreResponse(rec))
}

// GET /api/scores/{netuid}/history?days=
func (s *apiServer) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	netuid, ok := s.parseNetuid(w, r)
	if !ok {
		return
	}

	days := intQuery(r.URL.Query().Get("days"), defaultHistoryDays)
	if days <= 0 || days > maxHistoryDays {
		days = defaultHistoryDays
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	entries, err := s.historyStore.GetByNetuidSince(r.Context(), netuid, since)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load history", err)
		return
	}

	data := make([]historyResponse, 0, len(entries))
	for _, e := range entries {
		data = append(data, toHistoryResponse(e))
	}
	s.writeJSON(w, http.StatusOK, listHistoryResponse{Netuid: netuid, Days: days, Data: data})
}

// GET /api/leaderboards?limit=
func (s *apiServer) handleLeaderboards(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r.URL.Query().Get("limit"), s.topN)
	if limit <= 0 || limit > maxLeaderboardLimit {
		limit = s.topN
	}

	records, err := s.scoreStore.ListAll(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list scores", err)
		return
	}

	lb := ranking.BuildLeaderboards(records, limit)
	s.writeJSON(w, http.StatusOK, toLeaderboardsResponse(lb))
}

// POST /api/compare {"netuids": [1, 8, 64]}
func (s *apiServer) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if len(req.Netuids) < 2 || len(req.Netuids) > maxCompareSubnets {
		s.writeError(w, http.StatusBadRequest, "compare requires between 2 and 10 netuids", nil)
		return
	}

	records, err := s.scoreStore.GetByNetuids(r.Context(), req.Netuids)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load scores", err)
		return
	}
	if len(records) < 2 {
		s.writeError(w, http.StatusNotFound, "fewer than two requested subnets have been scored", nil)
		return
	}

	cmp := ranking.Compare(records)

	data := make([]scoreResponse, 0, len(records))
	for _, rec := range records {
		data = append(data, toScoreResponse(rec))
	}
	s.writeJSON(w, http.StatusOK, compareResponse{
		Count:            cmp.Count,
		AverageScore:     cmp.AverageScore,
		HighestScore:     cmp.HighestScore.Netuid,
		LowestScore:      cmp.LowestScore.Netuid,
		LowestPremium:    cmp.LowestPremium.Netuid,
		HighestMarketCap: cmp.HighestMarketCap.Netuid,
		Subnets:          data,
	})
}

// GET /api/stats/overview
func (s *apiServer) handleOverview(w http.ResponseWriter, r *http.Request) {
	records, err := s.scoreStore.ListAll(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list scores", err)
		return
	}

	ov := ranking.BuildOverview(records)

	categories := make([]categoryStatsResponse, 0, len(ov.Categories))
	for _, c := range ov.Categories {
		categories = append(categories, categoryStatsResponse{
			Category:     c.Category,
			Count:        c.Count,
			AverageScore: c.AverageScore,
		})
	}
	s.writeJSON(w, http.StatusOK, overviewResponse{
		TotalSubnets:       ov.TotalSubnets,
		AverageComposite:   ov.AverageComposite,
		AveragePerformance: ov.AveragePerformance,
		TotalMarketCapUSD:  ov.TotalMarketCapUSD,
		Categories:         categories,
		GeneratedAt:        ov.GeneratedAt,
	})
}

// POST /api/rescore triggers a full rescoring run in the background.
func (s *apiServer) handleRescore(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.rescoreRunning {
		s.mu.Unlock()
		s.writeError(w, http.StatusConflict, "rescoring already running", nil)
		return
	}
	s.rescoreRunning = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.rescoreRunning = false
			s.mu.Unlock()
		}()

		// Detached from the request context: the run outlives the response.
		result, err := s.orch.RescoreAll(context.Background())
		if err != nil {
			s.logger.Error().Err(err).Msg("manual rescoring failed")
			return
		}
		s.logger.Info().
			Int("scored", result.Scored).
			Int("skipped", result.Skipped).
			Int("failed", result.Failed).
			Msg("manual rescoring complete")
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// GET /health
func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *apiServer) parseNetuid(w http.ResponseWriter, r *http.Request) (int, bool) {
	netuid, err := strconv.Atoi(r.PathValue("netuid"))
	if err != nil || netuid <= 0 {
		s.writeError(w, http.StatusBadRequest, "netuid must be a positive integer", nil)
		return 0, false
	}
	return netuid, true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		s.logger.Error().Err(err).Int("status", status).Msg(msg)
	}
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// intQuery parses a query parameter, returning fallback on absence or junk.
func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// ABOUTME: Blocking-statistics HTTP handlers for the browser extension
// ABOUTME: Serves, syncs, and increments ads/trackers counters per user

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shieldsync/shieldsync/internal/auth"
	"github.com/shieldsync/shieldsync/internal/store"
)

// SyncStatsRequest is the JSON request body for POST /api/stats/sync. The
// extension reports absolute totals, not deltas.
type SyncStatsRequest struct {
	AdsBlocked      *int `json:"adsBlocked"`
	TrackersBlocked *int `json:"trackersBlocked"`
}

// statsForCaller loads the caller's statistics row, creating a zero row on
// first access.
func (s *Server) statsForCaller(w http.ResponseWriter, r *http.Request) (*store.Statistics, bool) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil || !principal.Authenticated {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	stats, err := s.store.GetStatsByEmail(r.Context(), principal.Subject)
	if errors.Is(err, store.ErrStatsNotFound) {
		stats = &store.Statistics{
			ID:        uuid.NewString(),
			UserEmail: principal.Subject,
		}
		if err := s.store.SaveStats(r.Context(), stats); err != nil {
			s.logger.Error("failed to create statistics", "error", err)
			s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
			return nil, false
		}
		return stats, true
	}
	if err != nil {
		s.logger.Error("failed to load statistics", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return nil, false
	}
	return stats, true
}

// formatTimeSaved renders saved hours the way the extension popup shows them.
func formatTimeSaved(hours float64) string {
	return fmt.Sprintf("%.1fh", hours)
}

// handleGetStats handles GET /api/stats.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.statsForCaller(w, r)
	if !ok {
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"adsBlocked":      stats.AdsBlocked,
		"trackersBlocked": stats.TrackersBlocked,
		"timeSaved":       formatTimeSaved(stats.TimeSavedHours),
	})
}

// handleSyncStats handles POST /api/stats/sync: absolute counter update with
// saved time rederived from the new totals.
func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.statsForCaller(w, r)
	if !ok {
		return
	}

	var req SyncStatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.AdsBlocked != nil {
		stats.AdsBlocked = *req.AdsBlocked
	}
	if req.TrackersBlocked != nil {
		stats.TrackersBlocked = *req.TrackersBlocked
	}
	stats.RecomputeTimeSaved()
	stats.UpdatedAt = time.Now()

	if err := s.store.SaveStats(r.Context(), stats); err != nil {
		s.logger.Error("failed to save statistics", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Statistics synced successfully",
		"adsBlocked":      stats.AdsBlocked,
		"trackersBlocked": stats.TrackersBlocked,
		"timeSaved":       formatTimeSaved(stats.TimeSavedHours),
	})
}

// countParam parses the ?count= query parameter, defaulting to 1.
func countParam(r *http.Request) int {
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count < 1 {
		return 1
	}
	return count
}

// handleIncrementAds handles POST /api/stats/increment/ads.
func (s *Server) handleIncrementAds(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.statsForCaller(w, r)
	if !ok {
		return
	}

	count := countParam(r)
	stats.IncrementAdsBlocked(count)
	stats.UpdatedAt = time.Now()

	if err := s.store.SaveStats(r.Context(), stats); err != nil {
		s.logger.Error("failed to save statistics", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	s.logger.Info("ads blocked incremented", "email", stats.UserEmail, "count", count)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Ads blocked count updated",
		"adsBlocked": stats.AdsBlocked,
	})
}

// handleIncrementTrackers handles POST /api/stats/increment/trackers.
func (s *Server) handleIncrementTrackers(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.statsForCaller(w, r)
	if !ok {
		return
	}

	count := countParam(r)
	stats.IncrementTrackersBlocked(count)
	stats.UpdatedAt = time.Now()

	if err := s.store.SaveStats(r.Context(), stats); err != nil {
		s.logger.Error("failed to save statistics", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	s.logger.Info("trackers blocked incremented", "email", stats.UserEmail, "count", count)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Trackers blocked count updated",
		"trackersBlocked": stats.TrackersBlocked,
	})
}

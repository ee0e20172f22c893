package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"internmatch-service/internal/app"
	"internmatch-service/internal/domain"
)

// RecommendHandler serves the JSON recommendation endpoints.
type RecommendHandler struct {
	service     *app.RecommendationService
	defaultTopN int
}

func NewRecommendHandler(service *app.RecommendationService, defaultTopN int) *RecommendHandler {
	if defaultTopN <= 0 {
		defaultTopN = 10
	}
	return &RecommendHandler{service: service, defaultTopN: defaultTopN}
}

type recommendationsResponse struct {
	CandidateID     string                  `json:"candidateId"`
	Recommendations []domain.Recommendation `json:"recommendations"`
}

// ServeRecommendations handles GET /recommendations?candidateId=&topN=.
func (h *RecommendHandler) ServeRecommendations(w http.ResponseWriter, r *http.Request) {
	candidateID := r.URL.Query().Get("candidateId")
	if candidateID == "" {
		http.Error(w, "missing candidateId", http.StatusBadRequest)
		return
	}

	topN := h.defaultTopN
	if raw := r.URL.Query().Get("topN"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid topN", http.StatusBadRequest)
			return
		}
		topN = n
	}

	recommendations, err := h.service.Recommend(r.Context(), candidateID, topN)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, recommendationsResponse{CandidateID: candidateID, Recommendations: recommendations})
}

// ServeMatch handles GET /match?candidateId=&internshipId=.
func (h *RecommendHandler) ServeMatch(w http.ResponseWriter, r *http.Request) {
	candidateID := r.URL.Query().Get("candidateId")
	internshipID := r.URL.Query().Get("internshipId")
	if candidateID == "" || internshipID == "" {
		http.Error(w, "missing candidateId or internshipId", http.StatusBadRequest)
		return
	}

	breakdown, err := h.service.ScoreInternship(r.Context(), candidateID, internshipID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, breakdown)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownCandidate),
		errors.Is(err, domain.ErrUnknownInternship),
		errors.Is(err, domain.ErrUnknownSkill):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Printf("recommendation error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

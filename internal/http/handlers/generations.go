package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"genserver/internal/domain"
	"genserver/internal/generation"
	"genserver/internal/providers/video"
)

type createTaskRequest struct {
	UserID   string `json:"user_id"`
	SubType  string `json:"task_subtype"`
	Provider string `json:"provider"`
	video.GenerationParams
}

type createTaskResponse struct {
	GenerationUUID string `json:"generation_uuid"`
	Status         string `json:"status"`
	CreditsCost    int    `json:"credits_cost"`
}

func (a *App) CreateVideoTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, domain.CodeInvalidParameter, "invalid request payload")
		return
	}
	gen, err := a.Coordinator.Create(r.Context(), generation.CreateRequest{
		UserID:   req.UserID,
		Type:     domain.GenerationTypeVideo,
		SubType:  req.SubType,
		Provider: req.Provider,
		Params:   req.GenerationParams,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, createTaskResponse{
		GenerationUUID: gen.ID,
		Status:         string(gen.Status),
		CreditsCost:    gen.CreditsCost,
	})
}

type quoteResponse struct {
	EstimatedCredits int    `json:"estimated_credits"`
	Explain          string `json:"explain"`
}

func (a *App) QuoteVideoTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, domain.CodeInvalidParameter, "invalid request payload")
		return
	}
	credits, explain, err := a.Coordinator.Quote(r.Context(), generation.CreateRequest{
		UserID:   req.UserID,
		Type:     domain.GenerationTypeVideo,
		SubType:  req.SubType,
		Provider: req.Provider,
		Params:   req.GenerationParams,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, quoteResponse{EstimatedCredits: credits, Explain: explain})
}

type generationResponse struct {
	GenerationUUID string   `json:"generation_uuid"`
	Status         string   `json:"status"`
	Provider       string   `json:"provider"`
	ModelName      string   `json:"model_name"`
	CreditsCost    int      `json:"credits_cost"`
	ResultURLs     []string `json:"result_urls,omitempty"`
	FailReason     string   `json:"fail_reason,omitempty"`
	FailCode       string   `json:"fail_code,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

func (a *App) GetVideoTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")
	if id == "" {
		a.error(w, http.StatusBadRequest, domain.CodeRequiredFieldMissing, "generation uuid is required")
		return
	}
	gen, err := a.Coordinator.GetByID(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, generationResponse{
		GenerationUUID: gen.ID,
		Status:         string(gen.Status),
		Provider:       gen.Provider,
		ModelName:      gen.ModelID,
		CreditsCost:    gen.CreditsCost,
		ResultURLs:     gen.ResultURLs,
		FailReason:     gen.FailReason,
		FailCode:       gen.FailCode,
		CreatedAt:      gen.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      gen.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"genserver/internal/domain"
	"genserver/internal/generation"
	"genserver/internal/infra"
	"genserver/internal/infra/geoip"
	"genserver/internal/llm"
)

// App carries the handler dependencies for the API surface.
type App struct {
	Coordinator *generation.Coordinator
	LLM         *llm.Service
	GeoIP       geoip.CountryResolver
	Logger      *infra.Logger
}

func NewApp(coordinator *generation.Coordinator, llmService *llm.Service, resolver geoip.CountryResolver, logger *infra.Logger) *App {
	return &App{
		Coordinator: coordinator,
		LLM:         llmService,
		GeoIP:       resolver,
		Logger:      logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// fail maps a domain error onto the HTTP contract.
func (a *App) fail(w http.ResponseWriter, err error) {
	code := domain.ErrorCode(err)
	a.error(w, statusFor(err, code), code, err.Error())
}

func statusFor(err error, code string) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnsupportedModel):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotConfigured):
		return http.StatusServiceUnavailable
	}
	switch code {
	case domain.CodeProviderUnavailable, domain.CodeLLMServiceUnavailable:
		return http.StatusBadGateway
	case domain.CodeWebhookUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeGenerationNotFound:
		return http.StatusNotFound
	case domain.CodeRequiredFieldMissing, domain.CodeInvalidParameter,
		domain.CodeUnsupportedModel, domain.CodeMalformedCallback:
		return http.StatusBadRequest
	case domain.CodeProviderNotConfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

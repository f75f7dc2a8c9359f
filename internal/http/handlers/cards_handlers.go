package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"parkgate/internal/models"
	"parkgate/internal/repository"
)

// CardStore is the card registry surface of the management API.
type CardStore interface {
	Create(ctx context.Context, card *models.Card) error
	ListActive(ctx context.Context) ([]models.Card, error)
	Deactivate(ctx context.Context, cardID string) error
}

// NewListCardsHandler returns GET /api/cards handler.
func NewListCardsHandler(cards CardStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := cards.ListActive(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load cards")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"cards": list})
	}
}

// NewCreateCardHandler returns POST /api/cards/create handler.
func NewCreateCardHandler(cards CardStore) http.HandlerFunc {
	type request struct {
		CardID      string `json:"card_id"`
		OwnerName   string `json:"owner_name"`
		PlateNumber string `json:"plate_number"`
		Phone       string `json:"phone"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req.CardID = strings.TrimSpace(req.CardID)
		if req.CardID == "" {
			writeError(w, http.StatusBadRequest, "card_id is required")
			return
		}

		card := &models.Card{
			CardID:      req.CardID,
			OwnerName:   strings.TrimSpace(req.OwnerName),
			PlateNumber: strings.TrimSpace(req.PlateNumber),
			Phone:       strings.TrimSpace(req.Phone),
		}
		if err := cards.Create(r.Context(), card); err != nil {
			if errors.Is(err, repository.ErrCardExists) {
				writeError(w, http.StatusConflict, "card already registered")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to register card")
			return
		}
		writeJSON(w, http.StatusCreated, card)
	}
}

// NewDeactivateCardHandler returns POST /api/cards/deactivate handler.
func NewDeactivateCardHandler(cards CardStore) http.HandlerFunc {
	type request struct {
		CardID string `json:"card_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.CardID) == "" {
			writeError(w, http.StatusBadRequest, "card_id is required")
			return
		}

		if err := cards.Deactivate(r.Context(), strings.TrimSpace(req.CardID)); err != nil {
			if errors.Is(err, repository.ErrCardNotFound) {
				writeError(w, http.StatusNotFound, "card not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to deactivate card")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
	}
}

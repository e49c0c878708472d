package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Admin handlers drive the round lifecycle. They all sit behind RequireAdmin.

// CreateRound opens a new pending round. An optional start_delay duration
// (e.g. "72h") schedules the round's nominal start.
func (h *Handlers) CreateRound(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Spec       string `json:"spec"`
		StartDelay string `json:"start_delay"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	var delay time.Duration
	if body.StartDelay != "" {
		d, err := time.ParseDuration(body.StartDelay)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad start delay"})
			return
		}
		delay = d
	}
	result, err := h.rounds.Create(r.Context(), body.Spec, delay)
	respond(w, result, err)
}

// StartRound moves a pending round into writing.
func (h *Handlers) StartRound(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	result, err := h.rounds.Start(r.Context(), num)
	respond(w, result, err)
}

// UnstartRound rolls a writing round back to pending, provided nobody has
// submitted yet.
func (h *Handlers) UnstartRound(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	result, err := h.rounds.Unstart(r.Context(), num)
	respond(w, result, err)
}

// AdvanceRound moves a writing round into guessing, assigning anonymized
// entry positions.
func (h *Handlers) AdvanceRound(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	result, err := h.rounds.AdvanceToGuessing(r.Context(), num)
	respond(w, result, err)
}

// CompleteRound ends a guessing round: scores it, reveals authorship and
// opens the next pending round.
func (h *Handlers) CompleteRound(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	result, err := h.rounds.Complete(r.Context(), num)
	respond(w, result, err)
}

// ReshuffleRound re-randomizes entry positions mid-guessing.
func (h *Handlers) ReshuffleRound(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	result, err := h.rounds.Reshuffle(r.Context(), num)
	respond(w, result, err)
}

// ExtendRound pushes the current stage deadline to a new date. The date can
// be a timestamp, a calendar day or a natural-language phrase.
func (h *Handlers) ExtendRound(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	var body struct {
		Until string `json:"until"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	result, err := h.rounds.Extend(r.Context(), num, body.Until)
	respond(w, result, err)
}

// DisqualifyEntry removes a player's entry and guesses from a round.
func (h *Handlers) DisqualifyEntry(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	playerID, err := strconv.ParseInt(chi.URLParam(r, "player"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad player id"})
		return
	}
	result, err := h.rounds.Disqualify(r.Context(), num, playerID)
	respond(w, result, err)
}

// BreakTie runs the deterministic coin flip among a round's rank-1 players.
func (h *Handlers) BreakTie(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	result, err := h.scores.BreakTie(r.Context(), num)
	respond(w, result, err)
}

// SetTarget records a player's impersonation target for the bonus point.
func (h *Handlers) SetTarget(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	var body struct {
		Player int64 `json:"player"`
		Target int64 `json:"target"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	result, err := h.scores.SetTarget(r.Context(), num, body.Player, body.Target)
	respond(w, result, err)
}

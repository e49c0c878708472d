package api

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	commentservice "github.com/esolangs/codeguessing/app/modules/comment/application"
	guessservice "github.com/esolangs/codeguessing/app/modules/guess/application"
	leaderboardservice "github.com/esolangs/codeguessing/app/modules/leaderboard/application"
	roundservice "github.com/esolangs/codeguessing/app/modules/round/application"
	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	scoreservice "github.com/esolangs/codeguessing/app/modules/score/application"
	submissionservice "github.com/esolangs/codeguessing/app/modules/submission/application"
)

// maxUploadBytes caps a single entry upload.
const maxUploadBytes = 32 << 20

// Handlers holds the services the HTTP layer dispatches into.
type Handlers struct {
	rounds      *roundservice.Service
	submissions *submissionservice.Service
	guesses     *guessservice.Service
	scores      *scoreservice.Service
	comments    *commentservice.Service
	leaderboard *leaderboardservice.Service
	logger      *slog.Logger
}

// NewHandlers wires the handler set.
func NewHandlers(
	rounds *roundservice.Service,
	submissions *submissionservice.Service,
	guesses *guessservice.Service,
	scores *scoreservice.Service,
	comments *commentservice.Service,
	leaderboard *leaderboardservice.Service,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		rounds:      rounds,
		submissions: submissions,
		guesses:     guesses,
		scores:      scores,
		comments:    comments,
		leaderboard: leaderboard,
		logger:      logger,
	}
}

func roundNumParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "num"), 10, 64)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return false
	}
	return true
}

// roundSummary is the listing shape: the round plus its display title and
// first spec line, so the index page never parses spec text.
type roundSummary struct {
	Round   rounddb.Round `json:"round"`
	Title   string        `json:"title,omitempty"`
	Summary string        `json:"summary,omitempty"`
}

func summarize(round rounddb.Round) roundSummary {
	return roundSummary{
		Round:   round,
		Title:   roundservice.SpecTitle(round.Spec),
		Summary: roundservice.SpecSummary(round.Spec),
	}
}

// ListRounds returns every round, newest first.
func (h *Handlers) ListRounds(w http.ResponseWriter, r *http.Request) {
	result, err := h.rounds.List(r.Context())
	if err != nil {
		respond(w, result, err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	summaries := make([]roundSummary, 0, len(*result.Success))
	for _, round := range *result.Success {
		summaries = append(summaries, summarize(round))
	}
	writeJSON(w, http.StatusOK, summaries)
}

// roundView is the public shape of a round, with its entries, and scores once
// the round is complete.
type roundView struct {
	Round   rounddb.Round                `json:"round"`
	Title   string                       `json:"title,omitempty"`
	Entries []submissionservice.Entry    `json:"entries,omitempty"`
	Scores  []scoreservice.ScoreboardRow `json:"scores,omitempty"`
}

// GetRound returns one round with its entries and, once completed, scores.
func (h *Handlers) GetRound(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}

	roundResult, err := h.rounds.GetByNum(r.Context(), num)
	if err != nil || roundResult.IsFailure() {
		respond(w, roundResult, err)
		return
	}
	view := roundView{
		Round: *roundResult.Success,
		Title: roundservice.SpecTitle(roundResult.Success.Spec),
	}

	entriesResult, err := h.submissions.Entries(r.Context(), num)
	if err != nil {
		respond(w, entriesResult, err)
		return
	}
	if entriesResult.IsSuccess() {
		view.Entries = *entriesResult.Success
	}

	if view.Round.Stage == rounddb.StageCompleted {
		scoresResult, err := h.scores.GetRoundScores(r.Context(), num)
		if err != nil {
			respond(w, scoresResult, err)
			return
		}
		if scoresResult.IsSuccess() {
			view.Scores = *scoresResult.Success
		}
	}

	writeJSON(w, http.StatusOK, view)
}

// GetEntryFile serves a single file from an anonymized entry.
func (h *Handlers) GetEntryFile(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad entry position"})
		return
	}
	name := chi.URLParam(r, "name")

	result, err := h.submissions.GetFileByPosition(r.Context(), num, position, name)
	if err != nil {
		respond(w, result, err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Success.Name))
	_, _ = w.Write(result.Success.Content)
}

// DownloadArchive streams the round's files as a tar.gz, gated by stage the
// same way the entry listing is.
func (h *Handlers) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	p, _ := PrincipalFrom(r.Context())

	result, err := h.submissions.Archive(r.Context(), num, p.ID)
	if err != nil {
		respond(w, result, err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("round-%d.tar.gz", num)))
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	for _, f := range *result.Success {
		hdr := &tar.Header{
			Name:    f.Path,
			Mode:    0o644,
			Size:    int64(len(f.Content)),
			ModTime: time.Now(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			h.logger.Error("Archive write failed", slog.Any("error", err))
			return
		}
		if _, err := tw.Write(f.Content); err != nil {
			h.logger.Error("Archive write failed", slog.Any("error", err))
			return
		}
	}
	if err := tw.Close(); err != nil {
		h.logger.Error("Archive close failed", slog.Any("error", err))
		return
	}
	if err := gz.Close(); err != nil {
		h.logger.Error("Archive close failed", slog.Any("error", err))
	}
}

// UploadEntry accepts a multipart form with one or more "files" parts and
// replaces the caller's entry for the round.
func (h *Handlers) UploadEntry(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	p, _ := PrincipalFrom(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed upload"})
		return
	}
	var files []submissionservice.FileUpload
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed upload"})
				return
			}
			content, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed upload"})
				return
			}
			files = append(files, submissionservice.FileUpload{Name: header.Filename, Content: content})
		}
	}

	result, err := h.submissions.Upload(r.Context(), num, p.ID, p.Name, files)
	respond(w, result, err)
}

// OwnEntry returns the caller's current files for the round.
func (h *Handlers) OwnEntry(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	p, _ := PrincipalFrom(r.Context())
	result, err := h.submissions.OwnFiles(r.Context(), num, p.ID)
	respond(w, result, err)
}

// TagFile sets or clears a file's language tag.
func (h *Handlers) TagFile(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	p, _ := PrincipalFrom(r.Context())

	var body struct {
		Author *int64 `json:"author,omitempty"`
		File   string `json:"file"`
		Tag    string `json:"tag"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	authorID := p.ID
	if body.Author != nil {
		authorID = *body.Author
	}
	result, err := h.submissions.UpdateFileTag(r.Context(), num, authorID, p.ID, p.Admin, body.File, body.Tag)
	respond(w, result, err)
}

// SubmitGuesses replaces the caller's guess set for the round. Entries may be
// guessed by player id, or as "me" for the caller's own id; each slot carries
// the client's locked pin, echoed back as sent.
func (h *Handlers) SubmitGuesses(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	p, _ := PrincipalFrom(r.Context())

	var body struct {
		Picks map[string]struct {
			Guess  json.RawMessage `json:"guess"`
			Locked bool            `json:"locked"`
		} `json:"picks"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	picks := make(map[int]guessservice.Pick, len(body.Picks))
	for posStr, slot := range body.Picks {
		pos, err := strconv.Atoi(posStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("bad entry position %q", posStr)})
			return
		}
		var who int64
		var me string
		if err := json.Unmarshal(slot.Guess, &who); err == nil {
			picks[pos] = guessservice.Pick{Guess: who, Locked: slot.Locked}
		} else if err := json.Unmarshal(slot.Guess, &me); err == nil && me == "me" {
			picks[pos] = guessservice.Pick{Guess: p.ID, Locked: slot.Locked}
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("bad guess for position %s", posStr)})
			return
		}
	}

	result, err := h.guesses.SubmitGuesses(r.Context(), num, p.ID, picks)
	if err != nil {
		respond(w, result, err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	// Echo back the stored set in its position-keyed shape.
	views, err := h.guesses.MyGuesses(r.Context(), num, p.ID)
	respond(w, views, err)
}

// MyGuesses returns the caller's current guesses for the round.
func (h *Handlers) MyGuesses(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	p, _ := PrincipalFrom(r.Context())
	result, err := h.guesses.MyGuesses(r.Context(), num, p.ID)
	respond(w, result, err)
}

// ToggleFinished flips the caller's finished-guessing flag.
func (h *Handlers) ToggleFinished(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	p, _ := PrincipalFrom(r.Context())
	result, err := h.guesses.ToggleFinished(r.Context(), num, p.ID)
	respond(w, result, err)
}

// ToggleLike flips the caller's like on an entry.
func (h *Handlers) ToggleLike(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad entry position"})
		return
	}
	p, _ := PrincipalFrom(r.Context())
	result, err := h.guesses.ToggleLike(r.Context(), num, p.ID, position)
	respond(w, result, err)
}

// commentView is a comment as shown to readers: the author id is withheld
// while the comment is still speaking through a persona.
type commentView struct {
	ID        int64      `json:"id"`
	RoundNum  int64      `json:"round_num"`
	AuthorID  *int64     `json:"author_id,omitempty"`
	Content   string     `json:"content"`
	Reply     *int64     `json:"reply,omitempty"`
	Persona   string     `json:"persona,omitempty"`
	OgPersona *string    `json:"og_persona,omitempty"`
	PostedAt  time.Time  `json:"posted_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

// ListComments returns a round's comment thread.
func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	result, err := h.comments.ListByRound(r.Context(), num)
	if err != nil {
		respond(w, result, err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	views := make([]commentView, 0, len(*result.Success))
	for _, c := range *result.Success {
		view := commentView{
			ID:        c.ID,
			RoundNum:  c.RoundNum,
			Content:   c.Content,
			Reply:     c.Reply,
			Persona:   c.Persona,
			OgPersona: c.OgPersona,
			PostedAt:  c.PostedAt,
			EditedAt:  c.EditedAt,
		}
		if c.Persona == "" {
			authorID := c.AuthorID
			view.AuthorID = &authorID
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}

// PostComment adds a comment to a round.
func (h *Handlers) PostComment(w http.ResponseWriter, r *http.Request) {
	num, err := roundNumParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad round number"})
		return
	}
	p, _ := PrincipalFrom(r.Context())

	var body struct {
		Content string `json:"content"`
		Reply   *int64 `json:"reply,omitempty"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	result, err := h.comments.Post(r.Context(), num, p.ID, body.Content, body.Reply)
	respond(w, result, err)
}

// EditComment rewrites one of the caller's comments.
func (h *Handlers) EditComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad comment id"})
		return
	}
	p, _ := PrincipalFrom(r.Context())

	var body struct {
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	result, err := h.comments.Edit(r.Context(), commentID, p.ID, body.Content)
	respond(w, result, err)
}

// DeleteComment removes a comment (owner or admin).
func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad comment id"})
		return
	}
	p, _ := PrincipalFrom(r.Context())
	result, err := h.comments.Delete(r.Context(), commentID, p.ID, p.Admin)
	respond(w, result, err)
}

// statsWindow reads the optional from/to round window off the query string.
// The zero "to" means the latest completed round.
func statsWindow(r *http.Request) (int64, int64, error) {
	from, to := int64(1), int64(0)
	if v := r.URL.Query().Get("from"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("bad from round: %w", err)
		}
		from = n
	}
	if v := r.URL.Query().Get("to"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("bad to round: %w", err)
		}
		to = n
	}
	return from, to, nil
}

// Standings returns the cumulative leaderboard over the requested window.
func (h *Handlers) Standings(w http.ResponseWriter, r *http.Request) {
	from, to, err := statsWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	result, err := h.leaderboard.Standings(r.Context(), from, to)
	respond(w, result, err)
}

// StandingsChart renders the running-total chart as a PNG.
func (h *Handlers) StandingsChart(w http.ResponseWriter, r *http.Request) {
	from, to, err := statsWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	result, err := h.leaderboard.Chart(r.Context(), from, to)
	if err != nil {
		respond(w, result, err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(*result.Success)
}

// StandingsCSV exports the leaderboard as CSV.
func (h *Handlers) StandingsCSV(w http.ResponseWriter, r *http.Request) {
	from, to, err := statsWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	result, err := h.leaderboard.ExportCSV(r.Context(), from, to)
	if err != nil {
		respond(w, result, err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="standings.csv"`)
	_, _ = w.Write(*result.Success)
}

// StandingsXLSX exports the leaderboard as a spreadsheet.
func (h *Handlers) StandingsXLSX(w http.ResponseWriter, r *http.Request) {
	from, to, err := statsWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	result, err := h.leaderboard.ExportXLSX(r.Context(), from, to)
	if err != nil {
		respond(w, result, err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="standings.xlsx"`)
	_, _ = w.Write(*result.Success)
}

// Me returns the caller's identity.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    strconv.FormatInt(p.ID, 10),
		"name":  p.Name,
		"admin": p.Admin,
	})
}

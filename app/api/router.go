package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the HTTP surface: public reads, player actions behind
// a session, lifecycle operations behind admin.
func NewRouter(h *Handlers, auth *Auth, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(auth.Middleware)

	r.Get("/auth/login", auth.Login)
	r.Get("/auth/callback", auth.Callback)
	r.Post("/auth/logout", auth.Logout)

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/rounds", h.ListRounds)
		r.Get("/rounds/{num}", h.GetRound)
		r.Get("/rounds/{num}/comments", h.ListComments)
		r.Get("/rounds/{num}/entries/{position}/files/{name}", h.GetEntryFile)

		r.Get("/stats", h.Standings)
		r.Get("/stats/chart.png", h.StandingsChart)
		r.Get("/stats/export.csv", h.StandingsCSV)
		r.Get("/stats/export.xlsx", h.StandingsXLSX)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)

			r.Get("/me", h.Me)
			r.Get("/rounds/{num}/archive.tar.gz", h.DownloadArchive)

			r.Post("/rounds/{num}/entry", h.UploadEntry)
			r.Get("/rounds/{num}/entry", h.OwnEntry)
			r.Post("/rounds/{num}/entry/tag", h.TagFile)

			r.Post("/rounds/{num}/guesses", h.SubmitGuesses)
			r.Get("/rounds/{num}/guesses", h.MyGuesses)
			r.Post("/rounds/{num}/finished", h.ToggleFinished)
			r.Post("/rounds/{num}/entries/{position}/like", h.ToggleLike)

			r.Post("/rounds/{num}/comments", h.PostComment)
			r.Patch("/comments/{id}", h.EditComment)
			r.Delete("/comments/{id}", h.DeleteComment)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Post("/rounds", h.CreateRound)
			r.Post("/rounds/{num}/start", h.StartRound)
			r.Post("/rounds/{num}/unstart", h.UnstartRound)
			r.Post("/rounds/{num}/stage2", h.AdvanceRound)
			r.Post("/rounds/{num}/complete", h.CompleteRound)
			r.Post("/rounds/{num}/reshuffle", h.ReshuffleRound)
			r.Post("/rounds/{num}/extend", h.ExtendRound)
			r.Post("/rounds/{num}/disqualify/{player}", h.DisqualifyEntry)
			r.Post("/rounds/{num}/tiebreak", h.BreakTie)
			r.Post("/rounds/{num}/target", h.SetTarget)
		})
	})

	return r
}

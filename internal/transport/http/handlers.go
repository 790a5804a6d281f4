package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"examprep-service/internal/app"
	"examprep-service/internal/domain"
	"examprep-service/internal/logging"
	"github.com/sirupsen/logrus"
)

const (
	defaultQuizLimit = 10
	maxQuizLimit     = 50
)

var errBadRequest = errors.New("bad request")

// API serves the REST endpoints.
type API struct {
	grading   *app.GradingService
	dashboard *app.DashboardService
	catalog   app.ContentCatalog
	feed      *app.LeaderboardFeed
	log       logrus.FieldLogger
}

func NewAPI(grading *app.GradingService, dashboard *app.DashboardService, catalog app.ContentCatalog, feed *app.LeaderboardFeed, log logrus.FieldLogger) *API {
	if log == nil {
		log = logging.Discard()
	}
	return &API{
		grading:   grading,
		dashboard: dashboard,
		catalog:   catalog,
		feed:      feed,
		log:       log,
	}
}

type attemptRequest struct {
	QuizID         string `json:"quizId"`
	SelectedAnswer *int   `json:"selectedAnswer"`
}

func (r attemptRequest) validate() error {
	if r.QuizID == "" || r.SelectedAnswer == nil {
		return errBadRequest
	}
	return nil
}

// quizView hides the correct answer from students.
type quizView struct {
	ID         string            `json:"id"`
	SubjectID  string            `json:"subjectId"`
	Question   string            `json:"question"`
	Options    []string          `json:"options"`
	Difficulty domain.Difficulty `json:"difficulty"`
	XP         int               `json:"xp"`
}

func (a *API) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	studentID, err := StudentIDFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req attemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	result, err := a.grading.SubmitAttempt(r.Context(), studentID, req.QuizID, *req.SelectedAnswer)
	if err != nil {
		a.logFailure(r, studentID, err)
		writeError(w, err)
		return
	}
	a.refreshFeed(r)
	writeJSON(w, http.StatusOK, result)
}

func (a *API) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	limit := defaultQuizLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, errBadRequest)
			return
		}
		limit = min(n, maxQuizLimit)
	}

	quizzes, err := a.catalog.ListQuizzes(r.Context(), r.URL.Query().Get("subject"), limit)
	if err != nil {
		a.log.WithError(err).Error("list quizzes failed")
		writeError(w, err)
		return
	}
	out := make([]quizView, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, quizView{
			ID:         q.ID,
			SubjectID:  q.SubjectID,
			Question:   q.Question,
			Options:    q.Options,
			Difficulty: q.Difficulty,
			XP:         q.XP,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": out})
}

func (a *API) ListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := a.catalog.ListSubjects(r.Context())
	if err != nil {
		a.log.WithError(err).Error("list subjects failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
}

func (a *API) DashboardStats(w http.ResponseWriter, r *http.Request) {
	studentID, err := StudentIDFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := a.dashboard.Stats(r.Context(), studentID)
	if err != nil {
		a.logFailure(r, studentID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) Leaderboard(w http.ResponseWriter, r *http.Request) {
	studentID, err := StudentIDFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	lb, err := a.dashboard.Leaderboard(r.Context(), studentID)
	if err != nil {
		a.logFailure(r, studentID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (a *API) refreshFeed(r *http.Request) {
	if a.feed == nil {
		return
	}
	if _, err := a.feed.Refresh(r.Context()); err != nil {
		a.log.WithError(err).Warn("leaderboard push failed")
	}
}

func (a *API) logFailure(r *http.Request, studentID string, err error) {
	if statusFor(err) < http.StatusInternalServerError {
		return
	}
	logging.WithStudent(a.log, studentID).
		WithError(err).
		WithField("path", r.URL.Path).
		Error("request failed")
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case app.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConcurrentUpdate), errors.Is(err, domain.ErrLockNotAcquired):
		return http.StatusConflict
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

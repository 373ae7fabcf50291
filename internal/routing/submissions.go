package routing

import (
	"context"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"submission-judge/internal/jobs"
	"submission-judge/internal/judge"
	"submission-judge/internal/ratelimit"
	"submission-judge/internal/sandbox"
	"submission-judge/internal/testcases"
	"submission-judge/internal/validation"
)

type JobService interface {
	Enqueue(ctx context.Context, request *judge.Request) (string, error)
	GetJob(ctx context.Context, id string) (*jobs.Job, error)
}

type Judge interface {
	Judge(ctx context.Context, request *judge.Request) (*judge.Result, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, principalID string) (ratelimit.Decision, error)
}

type SubmissionHandlers struct {
	Jobs JobService
	// Judge runs dry runs in process, their sample sets are small.
	Judge      Judge
	Limiter    RateLimiter
	Translator ut.Translator
	Validator  *validator.Validate
}

// Register mounts the submission routes on the router.
func (h SubmissionHandlers) Register(r *mux.Router) {
	r.HandleFunc("/submissions", h.HandleCreateSubmission).Methods(http.MethodPost)
	r.HandleFunc("/submissions/{id}", h.HandleGetSubmission).Methods(http.MethodGet)
	r.HandleFunc("/languages", HandleGetLanguages).Methods(http.MethodGet)
}

func (h SubmissionHandlers) HandleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	principalID := strings.TrimSpace(r.Header.Get(PrincipalHeader))

	if principalID == "" {
		handleErrorResponse(w, http.StatusUnauthorized, "missing "+PrincipalHeader+" header")
		return
	}

	var body SubmissionRequest

	if !decodeBody(w, r, &body) {
		return
	}

	if err := h.Validator.Struct(body); err != nil {
		handleErrorResponse(w, http.StatusBadRequest, validation.TranslateError(err, h.Translator)...)
		return
	}

	if !sandbox.Judged(body.Language) {
		handleErrorResponse(w, http.StatusUnprocessableEntity, "language is not supported for judging")
		return
	}

	decision, err := h.Limiter.Allow(r.Context(), principalID)

	if err != nil {
		log.Error().Err(err).Str("principalID", principalID).Msg("failed to apply rate limit")
		handleErrorResponse(w, http.StatusServiceUnavailable, "submissions are temporarily unavailable")

		return
	}

	if !decision.Allowed {
		w.Header().Set("Retry-After", retryAfterSeconds(decision.RetryAfter))
		handleErrorResponse(w, http.StatusTooManyRequests, "too many submissions, try again later")

		return
	}

	request := &judge.Request{
		ProblemID:   body.ProblemID,
		Language:    body.Language,
		SourceCode:  body.SourceCode,
		Mode:        body.Mode,
		PrincipalID: principalID,
	}

	if body.Mode == testcases.DryRun {
		h.dryRun(w, r, request)
		return
	}

	id, err := h.Jobs.Enqueue(r.Context(), request)

	if err != nil {
		log.Error().Err(err).Object("request", request).Msg("failed to enqueue submission")
		handleErrorResponse(w, http.StatusInternalServerError, "failed to queue submission")

		return
	}

	handleJSONResponse(w, QueuedSubmissionResponse{ID: id}, http.StatusAccepted)
}

func (h SubmissionHandlers) dryRun(w http.ResponseWriter, r *http.Request, request *judge.Request) {
	request.ID = uuid.NewString()

	result, err := h.Judge.Judge(r.Context(), request)

	if err != nil || result == nil {
		log.Error().Err(err).Object("request", request).Msg("failed to judge dry run")
		handleErrorResponse(w, http.StatusInternalServerError, "failed to judge submission")

		return
	}

	handleJSONResponse(w, result, http.StatusOK)
}

func (h SubmissionHandlers) HandleGetSubmission(w http.ResponseWriter, r *http.Request) {
	parsedID, err := uuid.Parse(mux.Vars(r)["id"])

	if err != nil {
		handleErrorResponse(w, http.StatusBadRequest, "failed to parse id value")
		return
	}

	job, err := h.Jobs.GetJob(r.Context(), parsedID.String())

	if errors.Is(err, jobs.ErrJobNotFound) {
		handleErrorResponse(w, http.StatusNotFound, "the submission does not exist by the provided id")
		return
	}

	if err != nil {
		log.Error().Err(err).Str("jobID", parsedID.String()).Msg("failed to load job")
		handleErrorResponse(w, http.StatusInternalServerError, "failed to load submission")

		return
	}

	handleJSONResponse(w, newSubmissionStatusResponse(job), http.StatusOK)
}

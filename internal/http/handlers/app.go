package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"autostudio/internal/domain"
	"autostudio/internal/jobs"
	"autostudio/internal/middleware"
)

// App bundles the handler dependencies.
type App struct {
	Orchestrator *jobs.Orchestrator
	Reconciler   *jobs.Reconciler
	Poll         *jobs.PollGateway
	Repo         domain.JobRepository
	Logger       zerolog.Logger
}

func NewApp(orch *jobs.Orchestrator, rec *jobs.Reconciler, poll *jobs.PollGateway, repo domain.JobRepository, logger zerolog.Logger) *App {
	return &App{
		Orchestrator: orch,
		Reconciler:   rec,
		Poll:         poll,
		Repo:         repo,
		Logger:       logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error":   errCode,
		"message": message,
	})
}

// currentAccount builds the entitlement facts for the authenticated caller
// from the verified token claims and the negotiated locale.
func (a *App) currentAccount(r *http.Request) (domain.Account, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.Sub == "" {
		return domain.Account{}, false
	}
	acct := domain.Account{
		ID:                    claims.Sub,
		Type:                  domain.AccountType(claims.AccountType),
		HasActiveSubscription: claims.Subscription,
		Locale:                claims.Locale,
	}
	if acct.Locale == "" {
		acct.Locale = middleware.LocaleFromContext(r.Context())
	}
	switch acct.Type {
	case domain.AccountTypePersonal, domain.AccountTypeDealer, domain.AccountTypeAdmin:
	default:
		acct.Type = domain.AccountTypePersonal
	}
	return acct, true
}

// writeDomainError maps domain failures onto the HTTP contract.
func (a *App) writeDomainError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		a.error(w, http.StatusBadRequest, "validation_error", vErr.Error())
		return
	}
	var eErr *domain.EntitlementError
	if errors.As(err, &eErr) {
		a.json(w, http.StatusForbidden, map[string]any{
			"error":          "entitlement_denied",
			"reason":         eErr.Reason,
			"feature":        eErr.Feature,
			"upgrade_prompt": eErr.Prompt,
		})
		return
	}
	switch {
	case errors.Is(err, domain.ErrProviderUnavailable):
		a.error(w, http.StatusServiceUnavailable, "provider_unavailable", "processing provider unreachable, retry the submission")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "job not found")
	case errors.Is(err, domain.ErrDuplicateHandle):
		a.error(w, http.StatusConflict, "duplicate_submission", "a job for this provider handle already exists")
	default:
		a.Logger.Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handlers

import (
	"io"
	"net/http"
)

// maxNotificationBytes bounds webhook bodies; provider notifications are
// small JSON documents.
const maxNotificationBytes = 1 << 20

// ProviderWebhook is the single inbound endpoint for provider push
// notifications. The transport contract is deliberately forgiving: 2xx for
// any payload that parses, including unmatched or stale ones, so the
// provider's retry-with-backoff never amplifies a transient internal problem
// into a delivery storm. Only an unparseable body earns a 4xx, which the
// provider's delivery system surfaces to operators.
func (a *App) ProviderWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "malformed_notification", "unreadable body")
		return
	}
	ack := a.Reconciler.HandleNotification(r.Context(), raw)
	if ack.Malformed {
		a.error(w, http.StatusBadRequest, "malformed_notification", "payload could not be parsed")
		return
	}
	if !ack.Processed {
		// Received but not processed: still acknowledged; the reconciler
		// already logged the internal failure for follow-up.
		a.Logger.Warn().Str("job_id", ack.JobID).Msg("webhook received but not processed")
	}
	a.json(w, http.StatusOK, map[string]any{
		"received":  ack.Received,
		"duplicate": ack.Duplicate,
	})
}

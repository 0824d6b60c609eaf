package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/veldastudio/storefront-backend/api/responses"
	paystackwebhook "github.com/veldastudio/storefront-backend/internal/webhooks/paystack"
	"github.com/veldastudio/storefront-backend/pkg/db/models"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/logger"
)

const paystackSignatureHeader = "X-Paystack-Signature"

type PaystackWebhookService interface {
	RecordDelivery(ctx context.Context, raw json.RawMessage, event *paystackwebhook.Event) (*models.WebhookLog, error)
	HandleEvent(ctx context.Context, entry *models.WebhookLog, event *paystackwebhook.Event) error
	SkipDuplicate(ctx context.Context, entry *models.WebhookLog) error
}

type paystackWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type PaystackClient interface {
	SigningSecret() string
}

// PaystackWebhook receives signed payment notifications. Signature
// verification runs against the raw body before anything is parsed or looked
// up; a tampered payload never touches the database.
func PaystackWebhook(svc PaystackWebhookService, client PaystackClient, guard paystackWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "paystack client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(paystackSignatureHeader)
		if !paystackwebhook.VerifySignature(client.SigningSecret(), payload, sigHeader) {
			if logg != nil {
				logg.Warn(ctx, "paystack webhook signature rejected")
			}
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		event, err := paystackwebhook.ParseEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// The log row must exist before the dedupe mark is set: if the
		// process dies mid-handling, the unprocessed row is what a retry
		// or manual reconciliation recovers the payment from.
		entry, err := svc.RecordDelivery(ctx, payload, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Paystack carries no delivery id, so dedupe on kind+reference.
		eventID := strings.TrimSpace(event.Kind.String() + ":" + event.Data.Reference)
		alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			_ = svc.SkipDuplicate(ctx, entry)
			responses.WriteSuccess(w, nil)
			return
		}

		// Release the mark unless handling finished, so the provider's
		// retry is not acknowledged without ever reaching the service.
		// The defer also covers a panic inside the handler.
		handled := false
		defer func() {
			if !handled {
				_ = guard.Delete(ctx, eventID)
			}
		}()

		if err := svc.HandleEvent(ctx, entry, event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		handled = true

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("paystack event %s processed", eventID))
		}
		responses.WriteSuccess(w, nil)
	}
}

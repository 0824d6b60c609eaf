package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/types"
)

func decodeError(t *testing.T, body []byte) types.ErrorEnvelope {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope
}

func TestWriteErrorOutOfStockKeepsDetails(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeOutOfStock, "only 2 left").WithDetails(map[string]any{
		"requested": 3,
		"available": 2,
	})
	WriteError(context.Background(), nil, rec, err)

	if rec.Code != 409 {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	envelope := decodeError(t, rec.Body.Bytes())
	if envelope.Error.Message != "only 2 left" {
		t.Fatalf("expected message passthrough, got %q", envelope.Error.Message)
	}
	if envelope.Error.Details == nil {
		t.Fatal("expected details on out-of-stock error")
	}
}

func TestWriteErrorDuplicateEventIsAcknowledged(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeDuplicateEvent, "event already applied"))

	if rec.Code != 200 {
		t.Fatalf("expected 200 for duplicate event, got %d", rec.Code)
	}
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	err := pkgerrors.Wrap(pkgerrors.CodeInternal, errors.New("pq: relation orders does not exist"), "load order")
	WriteError(context.Background(), nil, rec, err)

	if rec.Code != 500 {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	envelope := decodeError(t, rec.Body.Bytes())
	if envelope.Error.Message == "load order" || envelope.Error.Message == "pq: relation orders does not exist" {
		t.Fatalf("internal message leaked: %q", envelope.Error.Message)
	}
}

func TestWriteErrorWrapsUntypedErrors(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, errors.New("boom"))

	if rec.Code != 500 {
		t.Fatalf("expected 500 for untyped error, got %d", rec.Code)
	}
	envelope := decodeError(t, rec.Body.Bytes())
	if envelope.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("expected internal code, got %q", envelope.Error.Code)
	}
}

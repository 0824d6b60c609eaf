package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/veldastudio/storefront-backend/pkg/config"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/logger"
)

// Provider is the payment gateway surface checkout needs: start a hosted
// payment and re-verify a charge out-of-band.
type Provider interface {
	InitializeTransaction(ctx context.Context, input InitializeInput) (*InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error)
}

// InitializeInput starts a hosted Paystack checkout session.
type InitializeInput struct {
	Email       string
	AmountCents int
	Reference   string
	CallbackURL string
	Metadata    map[string]any
}

// InitializeResult carries the redirect the customer completes payment on.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult is Paystack's authoritative view of a charge.
type VerifyResult struct {
	Status        string
	Reference     string
	AmountCents   int
	Currency      string
	CustomerEmail string
	PaidAt        string
}

// Client talks to the Paystack REST API with centralized auth and error
// mapping.
type Client struct {
	http   *resty.Client
	secret string
	logg   *logger.Logger
}

// SigningSecret is the key Paystack signs webhook deliveries with; it is the
// same secret key used for API auth.
func (c *Client) SigningSecret() string {
	return c.secret
}

// NewClient initializes the Paystack wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, fmt.Errorf("paystack logger is required")
	}
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, fmt.Errorf("paystack secret key is required")
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(secret).
		SetHeader("Content-Type", "application/json")

	logg.Info(ctx, "paystack client initialized")
	return &Client{http: http, secret: secret, logg: logg}, nil
}

type apiEnvelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int    `json:"amount"`
	Currency  string `json:"currency"`
	PaidAt    string `json:"paid_at"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

func (c *Client) InitializeTransaction(ctx context.Context, input InitializeInput) (*InitializeResult, error) {
	if input.Email == "" || input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and a positive amount are required")
	}

	body := map[string]any{
		"email":     input.Email,
		"amount":    input.AmountCents,
		"reference": input.Reference,
	}
	if input.CallbackURL != "" {
		body["callback_url"] = input.CallbackURL
	}
	if len(input.Metadata) > 0 {
		body["metadata"] = input.Metadata
	}

	var out apiEnvelope[initializeData]
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/transaction/initialize")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initialize paystack transaction")
	}
	if resp.IsError() || !out.Status {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("paystack initialize failed: %s", failureMessage(resp, out.Message)))
	}

	return &InitializeResult{
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
		Reference:        out.Data.Reference,
	}, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}

	var out apiEnvelope[verifyData]
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/transaction/verify/" + reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify paystack transaction")
	}
	if resp.StatusCode() == 404 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("paystack transaction %q not found", reference))
	}
	if resp.IsError() || !out.Status {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("paystack verify failed: %s", failureMessage(resp, out.Message)))
	}

	return &VerifyResult{
		Status:        out.Data.Status,
		Reference:     out.Data.Reference,
		AmountCents:   out.Data.Amount,
		Currency:      out.Data.Currency,
		CustomerEmail: out.Data.Customer.Email,
		PaidAt:        out.Data.PaidAt,
	}, nil
}

func failureMessage(resp *resty.Response, message string) string {
	if message != "" {
		return message
	}
	return resp.Status()
}

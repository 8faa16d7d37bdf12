package booking

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"veilslot/models"
	"veilslot/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// PaymentVerifier decides the payment status recorded on a new booking.
type PaymentVerifier interface {
	Resolve(ctx context.Context, reference string, claimed models.PaymentStatus) (models.PaymentStatus, error)
}

// StaticVerifier trusts the caller. An empty claim means completed.
type StaticVerifier struct{}

func (StaticVerifier) Resolve(_ context.Context, _ string, claimed models.PaymentStatus) (models.PaymentStatus, error) {
	if claimed == "" {
		return models.PaymentCompleted, nil
	}
	return claimed, nil
}

// IntentFetcher loads a Stripe PaymentIntent by id.
type IntentFetcher func(ctx context.Context, id string) (*stripe.PaymentIntent, error)

// StripeVerifier looks up references that name a Stripe PaymentIntent
// ("pi_...") and derives the status from the intent. Other references fall
// back to the static rule.
type StripeVerifier struct {
	fetch IntentFetcher
}

func NewStripeVerifier(secretKey string) *StripeVerifier {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeVerifier{fetch: func(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
		params := &stripe.PaymentIntentParams{}
		params.Context = ctx
		return sc.PaymentIntents.Get(id, params)
	}}
}

// NewStripeVerifierWithFetcher is used where the intent lookup is provided externally.
func NewStripeVerifierWithFetcher(fetch IntentFetcher) *StripeVerifier {
	return &StripeVerifier{fetch: fetch}
}

func (v *StripeVerifier) Resolve(ctx context.Context, reference string, claimed models.PaymentStatus) (models.PaymentStatus, error) {
	if !strings.HasPrefix(reference, "pi_") {
		return StaticVerifier{}.Resolve(ctx, reference, claimed)
	}

	intent, err := v.fetch(ctx, reference)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return "", utils.WrapError(utils.KindValidation, err, "payment reference %s not found", reference)
		}
		return "", utils.WrapError(utils.KindUnavailable, err, "failed to verify payment %s", reference)
	}
	return paymentStatusFromIntent(intent.Status), nil
}

func paymentStatusFromIntent(status stripe.PaymentIntentStatus) models.PaymentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return models.PaymentCompleted
	case stripe.PaymentIntentStatusCanceled:
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}

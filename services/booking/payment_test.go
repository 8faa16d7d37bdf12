package booking

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"veilslot/models"
	"veilslot/utils"

	"github.com/stripe/stripe-go/v76"
)

func TestStaticVerifier(t *testing.T) {
	t.Parallel()

	got, err := StaticVerifier{}.Resolve(context.Background(), "", "")
	if err != nil || got != models.PaymentCompleted {
		t.Errorf("empty claim = %q, %v; want completed", got, err)
	}
	got, _ = StaticVerifier{}.Resolve(context.Background(), "ref", models.PaymentPending)
	if got != models.PaymentPending {
		t.Errorf("explicit claim = %q, want pending", got)
	}
}

func TestStripeVerifier(t *testing.T) {
	t.Parallel()

	intents := map[string]*stripe.PaymentIntent{
		"pi_ok":      {ID: "pi_ok", Status: stripe.PaymentIntentStatusSucceeded},
		"pi_waiting": {ID: "pi_waiting", Status: stripe.PaymentIntentStatusRequiresAction},
		"pi_dead":    {ID: "pi_dead", Status: stripe.PaymentIntentStatusCanceled},
	}
	var calls int
	v := NewStripeVerifierWithFetcher(func(_ context.Context, id string) (*stripe.PaymentIntent, error) {
		calls++
		if id == "pi_flaky" {
			return nil, errors.New("connection refused")
		}
		pi, ok := intents[id]
		if !ok {
			return nil, &stripe.Error{HTTPStatusCode: http.StatusNotFound, Msg: "No such payment_intent"}
		}
		return pi, nil
	})

	tests := []struct {
		ref  string
		want models.PaymentStatus
	}{
		{"pi_ok", models.PaymentCompleted},
		{"pi_waiting", models.PaymentPending},
		{"pi_dead", models.PaymentFailed},
	}
	for _, tt := range tests {
		got, err := v.Resolve(context.Background(), tt.ref, "")
		if err != nil || got != tt.want {
			t.Errorf("Resolve(%s) = %q, %v; want %q", tt.ref, got, err, tt.want)
		}
	}

	if _, err := v.Resolve(context.Background(), "pi_unknown", ""); utils.KindOf(err) != utils.KindValidation {
		t.Errorf("unknown intent kind = %q, want validation_failed", utils.KindOf(err))
	}
	if _, err := v.Resolve(context.Background(), "pi_flaky", ""); utils.KindOf(err) != utils.KindUnavailable {
		t.Errorf("transport failure kind = %q, want unavailable", utils.KindOf(err))
	}

	before := calls
	got, err := v.Resolve(context.Background(), "cash-42", models.PaymentPending)
	if err != nil || got != models.PaymentPending {
		t.Errorf("non-stripe reference = %q, %v", got, err)
	}
	if calls != before {
		t.Error("non-stripe reference hit the Stripe API")
	}
}

func TestStatsUpdaterIncrement(t *testing.T) {
	t.Parallel()

	profiles := newMemProfiles()
	_ = profiles.EnsureMinimal(context.Background(), "b", models.RoleClient)
	u := NewStatsUpdater(profiles)

	for _, amount := range []string{"1.5", "2", "0.000000001"} {
		if err := u.Increment(context.Background(), "b", amount); err != nil {
			t.Fatalf("Increment(%s): %v", amount, err)
		}
	}
	p, _ := profiles.Get(context.Background(), "b")
	if p.TotalSessions != 3 || p.TotalSpent != "3.500000001" {
		t.Errorf("stats = (%d, %q), want (3, 3.500000001)", p.TotalSessions, p.TotalSpent)
	}

	if err := u.Increment(context.Background(), "missing", "1"); err == nil {
		t.Error("expected error for unknown buyer")
	}
	if err := u.Increment(context.Background(), "b", "abc"); err == nil {
		t.Error("expected error for malformed amount")
	}
}

package lib

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"tbs/src/config"
	"tbs/src/types"

	"github.com/stripe/stripe-go/v82"
)

// VerifiedPayment is the gateway's authoritative record of one payment
// event, retrieved server-side. Nothing in it comes from the client.
type VerifiedPayment struct {
	AmountPaid    int64
	Currency      string
	GatewayStatus string
}

// PaymentGateway exposes the single server-trusted verification call.
// Verify must look the payment up by its gateway reference and assert that
// the record's own merchant reference matches, so a client cannot report a
// valid payment that belongs to a different, cheaper checkout.
type PaymentGateway interface {
	Verify(ctx context.Context, merchantRef string, paymentRef string) (*VerifiedPayment, error)
}

var gateway PaymentGateway

func GetGateway() PaymentGateway {
	if gateway != nil {
		return gateway
	}
	gateway = &stripeGateway{client: getStripeClient()}
	return gateway
}

// NewGateway Replace gateway instance with custom implementation
func NewGateway(g PaymentGateway) PaymentGateway {
	gateway = g
	return gateway
}

var stripeClient *stripe.Client

func getStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

type stripeGateway struct {
	client *stripe.Client
}

func (g *stripeGateway) Verify(ctx context.Context, merchantRef string, paymentRef string) (*VerifiedPayment, error) {
	ctx, cancel := context.WithTimeout(ctx, config.GatewayTimeout())
	defer cancel()

	pi, err := g.client.V1PaymentIntents.Retrieve(ctx, paymentRef, nil)
	if err != nil {
		var sErr *stripe.Error
		if errors.As(err, &sErr) && sErr.HTTPStatusCode < 500 {
			log.Printf("[gateway] Payment [%s] rejected: %s\n", paymentRef, sErr.Msg)
			return nil, fmt.Errorf("%w: %s", types.ErrGatewayRejected, sErr.Msg)
		}
		log.Printf("[gateway] Error retrieving payment [%s]: %s\n", paymentRef, err.Error())
		return nil, fmt.Errorf("%w: %s", types.ErrGatewayUnavailable, err.Error())
	}
	if pi.Metadata["merchant_ref"] != merchantRef {
		err := fmt.Errorf("%w: payment [%s] does not belong to this checkout", types.ErrGatewayRejected, paymentRef)
		log.Printf("[gateway] %s\n", err.Error())
		return nil, err
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("%w: payment status is %s", types.ErrGatewayRejected, pi.Status)
	}

	return &VerifiedPayment{
		AmountPaid:    pi.AmountReceived,
		Currency:      string(pi.Currency),
		GatewayStatus: string(pi.Status),
	}, nil
}

package types

import "errors"

// Reconciliation errors. Handlers map these to stable client-visible codes;
// anything else surfaces as a generic validation failure.
var (
	ErrInvalidState         = errors.New("operation not allowed in current payment status")
	ErrAlreadyCanceled      = errors.New("booking has been canceled")
	ErrAmountMismatch       = errors.New("amount paid does not match the computed final price")
	ErrCouponAlreadyUsed    = errors.New("coupon has already been used by another booking")
	ErrCouponAlreadyClaimed = errors.New("coupon has already been claimed")
	ErrCouponExpired        = errors.New("coupon has expired")
	ErrCouponNotEligible    = errors.New("coupon is not applicable to this purchase")
	ErrInsufficientMileage  = errors.New("mileage balance is insufficient")
	ErrGatewayRejected      = errors.New("payment was not accepted by the gateway")
	ErrGatewayUnavailable   = errors.New("payment gateway is unavailable")
)

var errorCodes = map[error]string{
	ErrInvalidState:         "InvalidStateError",
	ErrAlreadyCanceled:      "AlreadyCanceledError",
	ErrAmountMismatch:       "AmountMismatchError",
	ErrCouponAlreadyUsed:    "CouponAlreadyUsedError",
	ErrCouponAlreadyClaimed: "CouponAlreadyClaimedError",
	ErrCouponExpired:        "CouponExpiredError",
	ErrCouponNotEligible:    "CouponNotEligibleError",
	ErrInsufficientMileage:  "InsufficientMileageError",
	ErrGatewayRejected:      "GatewayRejected",
	ErrGatewayUnavailable:   "GatewayUnavailable",
}

func ErrorCode(err error) string {
	for sentinel, code := range errorCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return "ValidationError"
}

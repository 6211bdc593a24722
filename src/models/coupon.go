package models

import (
	"time"

	"tbs/src/types"
)

// Coupon is the discount rule catalog, managed elsewhere and consumed
// read-only by the reconciliation flow.
type Coupon struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `json:"name,omitempty"`

	DiscountType  types.DiscountType `json:"discount_type"`
	DiscountValue int64              `json:"discount_value"`
	// Applies to percentage coupons only; zero for fixed.
	MaxDiscountAmount     int64           `json:"max_discount_amount,omitempty"`
	MinPurchaseAmount     int64           `json:"min_purchase_amount,omitempty"`
	ApplicableMemberships types.StringSet `gorm:"type:jsonb" json:"applicable_memberships,omitempty"`
	ExpiresAt             *time.Time      `json:"expires_at,omitempty"`

	types.Timestamps
}

// UserCoupon is one redemption-ledger entry: a single claim per
// (user, coupon) pair. IsUsed flips true only inside the verified-payment
// transaction and is tied to exactly one booking through UsedByBookingID.
type UserCoupon struct {
	ID       uint `gorm:"primarykey" json:"id"`
	UserID   uint `gorm:"uniqueIndex:idx_user_coupon" json:"user_id"`
	CouponID uint `gorm:"uniqueIndex:idx_user_coupon" json:"coupon_id"`

	IssuedAt        time.Time  `json:"issued_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	IsUsed          bool       `gorm:"default:false" json:"is_used"`
	UsedByBookingID *uint      `json:"used_by_booking,omitempty"`

	Coupon *Coupon `gorm:"foreignKey:coupon_id" json:"coupon,omitempty"`

	types.Timestamps
}

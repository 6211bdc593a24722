package models

import (
	"time"

	"tbs/src/types"
)

// Booking is the transactional aggregate for one checkout attempt. It is
// addressed by the caller-supplied merchant_ref; clients never create a
// second row by retrying the same checkout.
type Booking struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	MerchantRef string `gorm:"uniqueIndex;not null" json:"merchant_ref"`
	UserID      uint   `json:"user_id,omitempty"`

	Status           types.PaymentStatus `gorm:"default:pending" json:"payment_status"`
	TotalPrice       int64               `json:"total_price"`
	DiscountAmount   int64               `json:"discount_amount"`
	UsedMileage      int64               `json:"used_mileage"`
	FinalPrice       int64               `json:"final_price"`
	RequestedMileage int64               `json:"requested_mileage,omitempty"`
	Currency         string              `json:"currency,omitempty"`

	UserCouponID      *uint   `json:"coupon_ref,omitempty"`
	GatewayPaymentRef *string `json:"gateway_payment_ref,omitempty"`

	StartDate       *time.Time   `json:"start_date,omitempty"`
	EndDate         *time.Time   `json:"end_date,omitempty"`
	ReservationInfo *types.JSONB `gorm:"type:jsonb" json:"reservation_info,omitempty"`
	StatusUpdatedAt *time.Time   `json:"status_updated_at,omitempty"`

	Items      []BookingItem `json:"items,omitempty"`
	User       *User         `gorm:"foreignKey:user_id" json:"user,omitempty"`
	UserCoupon *UserCoupon   `gorm:"foreignKey:user_coupon_id" json:"user_coupon,omitempty"`

	types.Timestamps
}

type BookingItem struct {
	ID        uint `gorm:"primarykey" json:"id"`
	BookingID uint `json:"booking_id,omitempty"`

	ProductID   uint              `json:"product_id"`
	RoomID      *uint             `json:"room_id,omitempty"`
	ProductType types.ProductType `json:"product_type,omitempty"`
	Count       uint              `json:"count"`
	UnitPrice   int64             `json:"unit_price"`
	Subtotal    int64             `json:"subtotal"`

	Product *Product `gorm:"foreignKey:product_id" json:"product,omitempty"`

	types.Timestamps
}

package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

// StringSet is a JSON-encoded list column with set membership checks.
type StringSet []string

func (a StringSet) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *StringSet) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

func (a StringSet) Contains(v string) bool {
	for _, s := range a {
		if s == v {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PAYMENT_PENDING   PaymentStatus = "pending"
	PAYMENT_COMPLETED PaymentStatus = "completed"
	PAYMENT_CONFIRMED PaymentStatus = "confirmed"
	PAYMENT_CANCELED  PaymentStatus = "canceled"
)

type ProductType string

const (
	PRODUCT_ACCOMMODATION ProductType = "accommodation"
	PRODUCT_FLIGHT        ProductType = "flight"
	PRODUCT_TOUR          ProductType = "tour"
	PRODUCT_GOODS         ProductType = "goods"
)

type ProductStatus string

const (
	PRODUCT_OPEN   ProductStatus = "open"
	PRODUCT_CLOSED ProductStatus = "closed"
)

type DiscountType string

const (
	DISCOUNT_PERCENTAGE DiscountType = "percentage"
	DISCOUNT_FIXED      DiscountType = "fixed"
)

type MileageReason string

const (
	MILEAGE_BOOKING_DEBIT  MileageReason = "booking_debit"
	MILEAGE_BOOKING_CREDIT MileageReason = "booking_credit"
	MILEAGE_GRANT          MileageReason = "grant"
)

type ProductSelection struct {
	ProductID uint  `json:"product_id" binding:"required"`
	RoomID    *uint `json:"room_id,omitempty"`
	Count     uint  `json:"count" binding:"required,min=1"`
}

type CreateBookingRequestBody struct {
	MerchantRef      string             `json:"merchant_ref" binding:"required"`
	Selections       []ProductSelection `json:"selections" binding:"required,min=1,dive"`
	UserCouponID     *uint              `json:"coupon_ref,omitempty"`
	RequestedMileage int64              `json:"requested_mileage" binding:"omitempty,min=0"`
	StartDate        *string            `json:"start_date,omitempty" binding:"omitempty,staydate"`
	EndDate          *string            `json:"end_date,omitempty" binding:"omitempty,staydate,gtdate=StartDate"`
	ReservationInfo  JSONB              `json:"reservation_info,omitempty"`
}

type VerifyPaymentRequestBody struct {
	MerchantRef       string `json:"merchant_ref" binding:"required"`
	GatewayPaymentRef string `json:"payment_ref" binding:"required"`
	UserCouponID      *uint  `json:"coupon_ref,omitempty"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type Claims struct {
	Username   string `json:"username"`
	Membership string `json:"membership"`
	jwt.RegisteredClaims
}

type APIResponseBooking struct {
	ID              uint          `json:"id"`
	MerchantRef     string        `json:"merchant_ref"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	TotalPrice      int64         `json:"total_price"`
	DiscountAmount  int64         `json:"discount_amount"`
	UsedMileage     int64         `json:"used_mileage"`
	FinalPrice      int64         `json:"final_price"`
	Currency        string        `json:"currency,omitempty"`
	StatusUpdatedAt *time.Time    `json:"status_updated_at,omitempty"`
}

package models

import "tbs/src/types"

// Mileage is the loyalty-point balance, one row per user. The balance is
// adjusted only through the conditional updates in the booking
// reconciliation transactions; it never goes below zero in a committed
// state.
type Mileage struct {
	ID      uint  `gorm:"primarykey" json:"id"`
	UserID  uint  `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance int64 `json:"balance"`

	types.Timestamps
}

// MileageLog is the append-only audit trail of signed balance deltas,
// written inside the same transaction as the balance update.
type MileageLog struct {
	ID        uint  `gorm:"primarykey" json:"id"`
	UserID    uint  `gorm:"index" json:"user_id"`
	BookingID *uint `json:"booking_id,omitempty"`

	Delta   int64               `json:"delta"`
	Balance int64               `json:"balance"`
	Reason  types.MileageReason `json:"reason"`

	types.Timestamps
}

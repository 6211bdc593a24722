package models

import "tbs/src/types"

type User struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	Name       string `json:"name,omitempty"`
	Email      string `gorm:"uniqueIndex" json:"email,omitempty"`
	Membership string `gorm:"default:basic" json:"membership,omitempty"`

	Bookings []Booking    `gorm:"foreignKey:user_id" json:"bookings,omitempty"`
	Coupons  []UserCoupon `gorm:"foreignKey:user_id" json:"coupons,omitempty"`

	types.Timestamps
}

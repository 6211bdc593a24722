package utils

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"tbs/src/db"
	"tbs/src/models"
	"tbs/src/types"

	"gorm.io/gorm"
)

// ComputeDiscount prices a coupon against a booking total. Percentage
// coupons are capped by MaxDiscountAmount when one is set; any discount
// is clamped so the payable amount never goes negative.
func ComputeDiscount(coupon *models.Coupon, membership string, totalPrice int64) (int64, error) {
	if coupon == nil {
		return 0, nil
	}
	if len(coupon.ApplicableMemberships) > 0 && !coupon.ApplicableMemberships.Contains(membership) {
		return 0, types.ErrCouponNotEligible
	}
	if coupon.MinPurchaseAmount > 0 && totalPrice < coupon.MinPurchaseAmount {
		return 0, types.ErrCouponNotEligible
	}
	var discount int64
	switch coupon.DiscountType {
	case types.DISCOUNT_PERCENTAGE:
		discount = totalPrice * coupon.DiscountValue / 100
		if coupon.MaxDiscountAmount > 0 && discount > coupon.MaxDiscountAmount {
			discount = coupon.MaxDiscountAmount
		}
	case types.DISCOUNT_FIXED:
		discount = coupon.DiscountValue
	default:
		return 0, fmt.Errorf("unknown discount type [%s]", coupon.DiscountType)
	}
	if discount > totalPrice {
		discount = totalPrice
	}
	return discount, nil
}

// ClaimCoupon issues a user-held copy of a campaign coupon. The unique
// (user_id, coupon_id) index is the backstop against double claims; the
// pre-check exists only to give callers a typed error before the insert.
func ClaimCoupon(userId uint, couponId uint) (*models.UserCoupon, error) {
	db := db.GetDb()
	var userCoupon *models.UserCoupon
	err := db.Transaction(func(tx *gorm.DB) error {
		var coupon models.Coupon
		if err := tx.Where(&models.Coupon{ID: couponId}).First(&coupon).Error; err != nil {
			return fmt.Errorf("coupon [%d] not found", couponId)
		}
		if coupon.ExpiresAt != nil && coupon.ExpiresAt.Before(time.Now()) {
			return types.ErrCouponExpired
		}
		var existing models.UserCoupon
		err := tx.
			Where(&models.UserCoupon{UserID: userId, CouponID: couponId}).
			First(&existing).
			Error
		if err == nil {
			return types.ErrCouponAlreadyClaimed
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now()
		uc := models.UserCoupon{
			UserID:    userId,
			CouponID:  couponId,
			IssuedAt:  now,
			ExpiresAt: coupon.ExpiresAt,
		}
		if err := tx.Create(&uc).Error; err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique") || strings.Contains(err.Error(), "duplicate") {
				return types.ErrCouponAlreadyClaimed
			}
			return err
		}
		uc.Coupon = &coupon
		userCoupon = &uc
		return nil
	})
	if err != nil {
		log.Printf("ClaimCoupon failed for user [%d] coupon [%d]: %s\n", userId, couponId, err.Error())
		return nil, err
	}
	return userCoupon, nil
}

func GetOwnCoupons(userId uint) ([]models.UserCoupon, error) {
	db := db.GetDb()
	var coupons []models.UserCoupon
	err := db.
		Model(&models.UserCoupon{}).
		Where(&models.UserCoupon{UserID: userId}).
		Preload("Coupon").
		Order("issued_at DESC").
		Find(&coupons).
		Error
	return coupons, err
}

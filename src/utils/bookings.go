package utils

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tbs/src/config"
	"tbs/src/db"
	"tbs/src/lib"
	"tbs/src/models"
	"tbs/src/types"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// errConcurrentTransition aborts a transaction whose status compare-and-set
// lost against another writer. Callers reload the booking and decide from
// the committed state.
var errConcurrentTransition = errors.New("booking status changed concurrently")

// CreateBooking creates a PENDING booking for one checkout attempt.
// merchant_ref is the caller's idempotency key: a retry that hits an
// existing PENDING booking gets that booking back instead of an error.
// No ledger is touched here; coupon and mileage are applied only once the
// payment is verified.
func CreateBooking(userId uint, body *types.CreateBookingRequestBody) (*models.Booking, error) {
	db := db.GetDb()
	if cached := cachedBookingByMerchantRef(body.MerchantRef); cached != nil {
		var existing models.Booking
		err := db.
			Where(&models.Booking{ID: *cached, UserID: userId, MerchantRef: body.MerchantRef}).
			Preload("Items").
			First(&existing).
			Error
		if err == nil && existing.Status == types.PAYMENT_PENDING {
			return &existing, nil
		}
	}
	var booking *models.Booking
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing models.Booking
		err := tx.
			Where(&models.Booking{MerchantRef: body.MerchantRef}).
			Preload("Items").
			First(&existing).
			Error
		if err == nil {
			if existing.UserID != userId {
				return fmt.Errorf("merchant_ref [%s] is already taken", body.MerchantRef)
			}
			if existing.Status != types.PAYMENT_PENDING {
				return types.ErrInvalidState
			}
			booking = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		items := make([]models.BookingItem, 0, len(body.Selections))
		var totalPrice int64
		currency := ""
		for _, sel := range body.Selections {
			var product models.Product
			if err := tx.Where(&models.Product{ID: sel.ProductID}).First(&product).Error; err != nil {
				return fmt.Errorf("product [%d] not found", sel.ProductID)
			}
			if product.Status != types.PRODUCT_OPEN {
				return fmt.Errorf("product [%d] is not purchasable", product.ID)
			}
			unitPrice := product.UnitPrice
			if sel.RoomID != nil {
				if product.Type != types.PRODUCT_ACCOMMODATION {
					return fmt.Errorf("product [%d] has no rooms", product.ID)
				}
				var room models.Room
				if err := tx.
					Where(&models.Room{ID: *sel.RoomID, ProductID: product.ID}).
					First(&room).
					Error; err != nil {
					return fmt.Errorf("room [%d] not found for product [%d]", *sel.RoomID, product.ID)
				}
				unitPrice = room.UnitPrice
			}
			subtotal := unitPrice * int64(sel.Count)
			items = append(items, models.BookingItem{
				ProductID:   product.ID,
				RoomID:      sel.RoomID,
				ProductType: product.Type,
				Count:       sel.Count,
				UnitPrice:   unitPrice,
				Subtotal:    subtotal,
			})
			totalPrice += subtotal
			if currency == "" {
				currency = product.Currency
			}
		}

		if body.UserCouponID != nil {
			var uc models.UserCoupon
			if err := tx.
				Where(&models.UserCoupon{ID: *body.UserCouponID, UserID: userId}).
				First(&uc).
				Error; err != nil {
				return fmt.Errorf("coupon [%d] not found", *body.UserCouponID)
			}
			if uc.IsUsed {
				return types.ErrCouponAlreadyUsed
			}
			if uc.ExpiresAt != nil && uc.ExpiresAt.Before(time.Now()) {
				return types.ErrCouponExpired
			}
		}

		b := models.Booking{
			MerchantRef:      body.MerchantRef,
			UserID:           userId,
			Status:           types.PAYMENT_PENDING,
			TotalPrice:       totalPrice,
			RequestedMileage: body.RequestedMileage,
			UserCouponID:     body.UserCouponID,
			Currency:         currency,
			Items:            items,
		}
		if body.StartDate != nil {
			startDate, err := time.Parse(config.DATE_PARSE_FORMAT, *body.StartDate)
			if err != nil {
				return fmt.Errorf("invalid start_date: %s", err.Error())
			}
			b.StartDate = &startDate
		}
		if body.EndDate != nil {
			endDate, err := time.Parse(config.DATE_PARSE_FORMAT, *body.EndDate)
			if err != nil {
				return fmt.Errorf("invalid end_date: %s", err.Error())
			}
			b.EndDate = &endDate
		}
		if body.ReservationInfo != nil {
			b.ReservationInfo = &body.ReservationInfo
		}
		if err := tx.Create(&b).Error; err != nil {
			return err
		}
		booking = &b
		return nil
	})
	if err != nil {
		log.Printf("CreateBooking failed: %s\n", err.Error())
		return nil, err
	}

	if rd := lib.GetRedisClient(); rd != nil {
		go cacheBookingByMerchantRef(rd, booking.MerchantRef, booking.ID)
	}

	return booking, nil
}

// cachedBookingByMerchantRef resolves a merchant_ref to a booking id from
// the redis cache. A nil result means cache miss or no redis; callers fall
// back to the unique index lookup either way.
func cachedBookingByMerchantRef(merchantRef string) *uint {
	rd := lib.GetRedisClient()
	if rd == nil {
		return nil
	}
	val, err := rd.Get(context.Background(), fmt.Sprintf("booking:%s", merchantRef)).Uint64()
	if err != nil {
		return nil
	}
	id := uint(val)
	return &id
}

func cacheBookingByMerchantRef(rd *redis.Client, merchantRef string, bookingId uint) {
	if err := rd.SetEx(context.Background(), fmt.Sprintf("booking:%s", merchantRef), uint64(bookingId), config.CheckoutWindow()).Err(); err != nil {
		log.Printf("Error caching merchant_ref [%s]: %s\n", merchantRef, err.Error())
	}
}

// VerifyPayment is the verified-payment transition. It asks the gateway for
// its authoritative record of the reported payment, recomputes the price
// from current ledger state, asserts the paid amount matches exactly, and
// applies coupon, mileage and status in one transaction. Duplicate calls
// for an already finalized booking return the committed result without
// touching any ledger again.
func VerifyPayment(ctx context.Context, userId uint, merchantRef string, paymentRef string) (*models.Booking, error) {
	db := db.GetDb()
	var booking models.Booking
	if err := db.
		Where(&models.Booking{MerchantRef: merchantRef}).
		First(&booking).
		Error; err != nil {
		return nil, err
	}
	if booking.UserID != userId {
		return nil, gorm.ErrRecordNotFound
	}
	switch booking.Status {
	case types.PAYMENT_COMPLETED, types.PAYMENT_CONFIRMED:
		return &booking, nil
	case types.PAYMENT_CANCELED:
		return nil, types.ErrAlreadyCanceled
	}

	// The gateway round-trip happens before any ledger work, so no lock is
	// held during external I/O. A timeout surfaces as ErrGatewayUnavailable
	// and leaves the booking untouched; the caller retries with the same
	// merchant_ref.
	payment, err := lib.GetGateway().Verify(ctx, merchantRef, paymentRef)
	if err != nil {
		return nil, err
	}

	bookingId := booking.ID
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where(&models.Booking{ID: bookingId}).
			Preload("Items").
			First(&booking).
			Error; err != nil {
			return err
		}
		if booking.Status != types.PAYMENT_PENDING {
			return errConcurrentTransition
		}

		var totalPrice int64
		for _, item := range booking.Items {
			totalPrice += item.Subtotal
		}

		var discountAmount int64
		if booking.UserCouponID != nil {
			var uc models.UserCoupon
			if err := tx.
				Where(&models.UserCoupon{ID: *booking.UserCouponID, UserID: booking.UserID}).
				Preload("Coupon").
				First(&uc).
				Error; err != nil {
				return fmt.Errorf("coupon [%d] not found", *booking.UserCouponID)
			}
			if uc.IsUsed && (uc.UsedByBookingID == nil || *uc.UsedByBookingID != bookingId) {
				return types.ErrCouponAlreadyUsed
			}
			if uc.ExpiresAt != nil && uc.ExpiresAt.Before(time.Now()) {
				return types.ErrCouponExpired
			}
			var user models.User
			if err := tx.Where(&models.User{ID: booking.UserID}).First(&user).Error; err != nil {
				return err
			}
			discountAmount, err = ComputeDiscount(uc.Coupon, user.Membership, totalPrice)
			if err != nil {
				return err
			}
		}

		var balance int64
		if booking.RequestedMileage > 0 {
			var mileage models.Mileage
			err := tx.Where(&models.Mileage{UserID: booking.UserID}).First(&mileage).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			balance = mileage.Balance
		}
		usedMileage := booking.RequestedMileage
		if balance < usedMileage {
			usedMileage = balance
		}
		if remainder := totalPrice - discountAmount; remainder < usedMileage {
			usedMileage = remainder
		}
		finalPrice := totalPrice - discountAmount - usedMileage
		if finalPrice < 0 {
			return fmt.Errorf("final price for booking [%d] is negative", bookingId)
		}

		if payment.AmountPaid != finalPrice {
			log.Printf("Amount mismatch on booking [%d]: paid=%d computed=%d\n", bookingId, payment.AmountPaid, finalPrice)
			return types.ErrAmountMismatch
		}

		if booking.UserCouponID != nil {
			res := tx.
				Model(&models.UserCoupon{}).
				Where("id = ? AND is_used = ?", *booking.UserCouponID, false).
				Updates(map[string]any{"is_used": true, "used_by_booking_id": bookingId})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				var uc models.UserCoupon
				if err := tx.Where("id = ?", *booking.UserCouponID).First(&uc).Error; err != nil {
					return err
				}
				if uc.UsedByBookingID == nil || *uc.UsedByBookingID != bookingId {
					return types.ErrCouponAlreadyUsed
				}
			}
		}

		if usedMileage > 0 {
			// Conditional debit: commits only if the balance still covers
			// the amount, even when a concurrent checkout spent from it
			// after the clamp above.
			res := tx.
				Model(&models.Mileage{}).
				Where("user_id = ? AND balance >= ?", booking.UserID, usedMileage).
				Update("balance", gorm.Expr("balance - ?", usedMileage))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return types.ErrInsufficientMileage
			}
			var mileage models.Mileage
			if err := tx.Where(&models.Mileage{UserID: booking.UserID}).First(&mileage).Error; err != nil {
				return err
			}
			entry := models.MileageLog{
				UserID:    booking.UserID,
				BookingID: &bookingId,
				Delta:     -usedMileage,
				Balance:   mileage.Balance,
				Reason:    types.MILEAGE_BOOKING_DEBIT,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}

		now := time.Now()
		res := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingId, types.PAYMENT_PENDING).
			Updates(map[string]any{
				"status":              types.PAYMENT_COMPLETED,
				"total_price":         totalPrice,
				"discount_amount":     discountAmount,
				"used_mileage":        usedMileage,
				"final_price":         finalPrice,
				"currency":            payment.Currency,
				"gateway_payment_ref": paymentRef,
				"status_updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errConcurrentTransition
		}
		return nil
	})
	if err != nil {
		// A losing racer can fail at any guard in the transaction, including
		// the balance check after the winner's debit. Everything rolled back,
		// so consult what actually committed before surfacing the error: a
		// finalized booking means the winner was a duplicate of this call.
		var current models.Booking
		if e := db.Where("id = ?", bookingId).First(&current).Error; e == nil {
			switch current.Status {
			case types.PAYMENT_COMPLETED, types.PAYMENT_CONFIRMED:
				return &current, nil
			case types.PAYMENT_CANCELED:
				return nil, types.ErrAlreadyCanceled
			}
		}
		log.Printf("VerifyPayment failed for [%s]: %s\n", merchantRef, err.Error())
		return nil, err
	}

	if err := db.Where("id = ?", bookingId).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// CancelBooking reverses a booking. A PENDING booking never touched the
// ledgers so cancellation is a pure status flip; a COMPLETED booking gets
// its mileage credited back and its coupon released in the same
// transaction that flips the status. CONFIRMED bookings are final. The
// external gateway charge is not reversed here.
func CancelBooking(bookingId uint, userId uint) (*models.Booking, error) {
	db := db.GetDb()
	var booking models.Booking
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Booking{ID: bookingId}).First(&booking).Error; err != nil {
			return err
		}
		if booking.UserID != userId {
			return gorm.ErrRecordNotFound
		}
		now := time.Now()
		switch booking.Status {
		case types.PAYMENT_CANCELED:
			return nil
		case types.PAYMENT_CONFIRMED:
			return types.ErrInvalidState
		case types.PAYMENT_PENDING:
			res := tx.
				Model(&models.Booking{}).
				Where("id = ? AND status = ?", bookingId, types.PAYMENT_PENDING).
				Updates(map[string]any{"status": types.PAYMENT_CANCELED, "status_updated_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errConcurrentTransition
			}
			return nil
		}

		if booking.UsedMileage > 0 {
			res := tx.
				Model(&models.Mileage{}).
				Where("user_id = ?", booking.UserID).
				Update("balance", gorm.Expr("balance + ?", booking.UsedMileage))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("no mileage account for user [%d]", booking.UserID)
			}
			var mileage models.Mileage
			if err := tx.Where(&models.Mileage{UserID: booking.UserID}).First(&mileage).Error; err != nil {
				return err
			}
			entry := models.MileageLog{
				UserID:    booking.UserID,
				BookingID: &booking.ID,
				Delta:     booking.UsedMileage,
				Balance:   mileage.Balance,
				Reason:    types.MILEAGE_BOOKING_CREDIT,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}

		if booking.UserCouponID != nil {
			// Release only while the coupon still points at this booking.
			if err := tx.
				Model(&models.UserCoupon{}).
				Where("id = ? AND used_by_booking_id = ?", *booking.UserCouponID, booking.ID).
				Updates(map[string]any{"is_used": false, "used_by_booking_id": nil}).
				Error; err != nil {
				return err
			}
		}

		res := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingId, types.PAYMENT_COMPLETED).
			Updates(map[string]any{"status": types.PAYMENT_CANCELED, "status_updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errConcurrentTransition
		}
		return nil
	})
	if err != nil {
		log.Printf("CancelBooking failed for [%d]: %s\n", bookingId, err.Error())
		return nil, err
	}

	if err := db.Where("id = ?", bookingId).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// ConfirmBooking acknowledges a completed purchase. No ledger effect.
func ConfirmBooking(bookingId uint, userId uint) (*models.Booking, error) {
	db := db.GetDb()
	var booking models.Booking
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Booking{ID: bookingId}).First(&booking).Error; err != nil {
			return err
		}
		if booking.UserID != userId {
			return gorm.ErrRecordNotFound
		}
		if booking.Status == types.PAYMENT_CANCELED {
			return types.ErrAlreadyCanceled
		}
		res := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingId, types.PAYMENT_COMPLETED).
			Updates(map[string]any{"status": types.PAYMENT_CONFIRMED, "status_updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.ErrInvalidState
		}
		return nil
	})
	if err != nil {
		log.Printf("ConfirmBooking failed for [%d]: %s\n", bookingId, err.Error())
		return nil, err
	}

	if err := db.Where("id = ?", bookingId).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func GetOwnBookings(userId uint) ([]models.Booking, error) {
	db := db.GetDb()
	var bookings []models.Booking
	err := db.
		Model(&models.Booking{}).
		Where(&models.Booking{UserID: userId}).
		Preload("Items").
		Order("created_at DESC").
		Limit(20).
		Find(&bookings).
		Error
	return bookings, err
}

func GetBooking(bookingId uint, userId uint) (*models.Booking, error) {
	db := db.GetDb()
	var booking models.Booking
	if err := db.
		Where(&models.Booking{ID: bookingId, UserID: userId}).
		Preload("Items").
		Preload("UserCoupon").
		First(&booking).
		Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// ExpireStaleBookings cancels PENDING bookings whose checkout window has
// lapsed. PENDING bookings have no ledger effects, so a bulk status flip
// through the same compare-and-set guard is safe.
func ExpireStaleBookings(window time.Duration) (int64, error) {
	db := db.GetDb()
	cutoff := time.Now().Add(-window)
	res := db.
		Model(&models.Booking{}).
		Where("status = ? AND created_at < ?", types.PAYMENT_PENDING, cutoff).
		Updates(map[string]any{"status": types.PAYMENT_CANCELED, "status_updated_at": time.Now()})
	if res.Error != nil {
		log.Printf("Error expiring stale bookings: %s\n", res.Error.Error())
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("Expired %d stale bookings\n", res.RowsAffected)
	}
	return res.RowsAffected, nil
}

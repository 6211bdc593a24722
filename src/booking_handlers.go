package main

import (
	"errors"
	"net/http"
	"tbs/src/models"
	"tbs/src/types"
	"tbs/src/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// bookingErrorStatus maps the typed reconciliation errors onto HTTP
// statuses: gateway outages are retryable (503), gateway declines are
// payment failures (402), ledger and state conflicts are 409, anything
// else is a plain bad request.
func bookingErrorStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrGatewayRejected):
		return http.StatusPaymentRequired
	case errors.Is(err, types.ErrAmountMismatch),
		errors.Is(err, types.ErrCouponAlreadyUsed),
		errors.Is(err, types.ErrCouponAlreadyClaimed),
		errors.Is(err, types.ErrInsufficientMileage),
		errors.Is(err, types.ErrAlreadyCanceled),
		errors.Is(err, types.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func bookingError(ctx *gin.Context, err error) {
	ctx.JSON(bookingErrorStatus(err), gin.H{"error": err.Error(), "code": types.ErrorCode(err)})
}

// bookingResponse is the reconciliation summary returned by the state
// transition endpoints; list/read endpoints return the full aggregate.
func bookingResponse(b *models.Booking) types.APIResponseBooking {
	return types.APIResponseBooking{
		ID:              b.ID,
		MerchantRef:     b.MerchantRef,
		PaymentStatus:   b.Status,
		TotalPrice:      b.TotalPrice,
		DiscountAmount:  b.DiscountAmount,
		UsedMileage:     b.UsedMileage,
		FinalPrice:      b.FinalPrice,
		Currency:        b.Currency,
		StatusUpdatedAt: b.StatusUpdatedAt,
	}
}

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			booking, err := utils.CreateBooking(userId, &body)
			if err != nil {
				bookingError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": booking})
		}).
		POST("/bookings/verify-payment", func(ctx *gin.Context) {
			var body types.VerifyPaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			booking, err := utils.VerifyPayment(ctx.Request.Context(), userId, body.MerchantRef, body.GatewayPaymentRef)
			if err != nil {
				bookingError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookingResponse(booking)})
		}).
		GET("/bookings/mine", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			bookings, err := utils.GetOwnBookings(userId)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			booking, err := utils.GetBooking(params.ID, userId)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			booking, err := utils.CancelBooking(params.ID, userId)
			if err != nil {
				bookingError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookingResponse(booking)})
		}).
		PUT("/bookings/:id/confirm", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			booking, err := utils.ConfirmBooking(params.ID, userId)
			if err != nil {
				bookingError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookingResponse(booking)})
		})
	return g
}

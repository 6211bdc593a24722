package main

import (
	"net/http"
	"time"

	"tbs/src/db"
	"tbs/src/models"
	"tbs/src/types"
	"tbs/src/utils"

	"github.com/gin-gonic/gin"
)

func couponHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/coupons", func(ctx *gin.Context) {
			db := db.GetDb()
			var coupons []models.Coupon
			err := db.
				Model(&models.Coupon{}).
				Where("expires_at IS NULL OR expires_at > ?", time.Now()).
				Order("created_at DESC").
				Find(&coupons).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": coupons, "count": len(coupons)})
		}).
		POST("/coupons/:id/claim", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			userCoupon, err := utils.ClaimCoupon(userId, params.ID)
			if err != nil {
				bookingError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": userCoupon})
		}).
		GET("/coupons/mine", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			coupons, err := utils.GetOwnCoupons(userId)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": coupons, "count": len(coupons)})
		})
	return g
}

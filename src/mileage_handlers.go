package main

import (
	"net/http"

	"tbs/src/utils"

	"github.com/gin-gonic/gin"
)

func mileageHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/mileage", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			mileage, err := utils.GetMileage(userId)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": mileage})
		}).
		GET("/mileage/history", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			logs, err := utils.GetMileageHistory(userId)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": logs, "count": len(logs)})
		})
	return g
}

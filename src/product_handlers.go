package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tbs/src/db"
	"tbs/src/lib"
	"tbs/src/models"
	"tbs/src/types"

	"github.com/gin-gonic/gin"
)

func productHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/products", func(ctx *gin.Context) {
			db := db.GetDb()
			query := db.
				Model(&models.Product{}).
				Where(&models.Product{Status: types.PRODUCT_OPEN}).
				Preload("Rooms").
				Limit(100)
			if t := ctx.Query("type"); t != "" {
				query = query.Where("type = ?", t)
			}
			if loc := ctx.Query("location"); loc != "" {
				query = query.Where("location = ?", loc)
			}
			var products []models.Product
			if err := query.Find(&products).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": products, "count": len(products)})
		}).
		GET("/products/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			cacheKey := fmt.Sprintf("product:%d", params.ID)
			rd := lib.GetRedisClient()
			if rd != nil {
				if val := rd.Get(context.Background(), cacheKey).Val(); val != "" {
					var cached models.Product
					if err := json.Unmarshal([]byte(val), &cached); err == nil {
						ctx.JSON(http.StatusOK, gin.H{"data": cached})
						return
					}
				}
			}
			db := db.GetDb()
			var product models.Product
			if err := db.
				Where(&models.Product{ID: params.ID}).
				Preload("Rooms").
				First(&product).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			if rd != nil {
				go func(p models.Product) {
					b, err := json.Marshal(&p)
					if err != nil {
						return
					}
					rd.SetEx(context.Background(), cacheKey, string(b), time.Hour)
				}(product)
			}
			ctx.JSON(http.StatusOK, gin.H{"data": product})
		})
	return g
}

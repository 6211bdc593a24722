package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"reflect"
	"regexp"
	"strconv"
	"time"

	"tbs/src/boot"
	"tbs/src/config"
	"tbs/src/db"
	"tbs/src/middlewares"
	"tbs/src/models"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	_ "github.com/joho/godotenv/autoload"
)

const (
	apiPrefix string = "/api/v1"
)

func dateFieldValue(fl validator.FieldLevel) (string, bool) {
	switch v := fl.Field().Interface().(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	}
	return "", false
}

var stayDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := dateFieldValue(fl)
	if !ok {
		return true
	}
	datetime, err := time.Parse(config.DATE_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	today := time.Now().Truncate(24 * time.Hour)
	return !datetime.Before(today)
}

var gtdate validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := dateFieldValue(fl)
	if !ok {
		return true
	}
	datetime, err := time.Parse(config.DATE_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	field := fl.Parent().FieldByName(fl.Param())
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return true
		}
		field = field.Elem()
	}
	fielddatetime, err := time.Parse(config.DATE_PARSE_FORMAT, field.Interface().(string))
	if err != nil {
		return false
	}
	return !fielddatetime.After(datetime)
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		atoi, err := strconv.ParseBool(mm)
		if err == nil && atoi {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, err.Error())
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func guestAuthRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	guest := apiv1.Group("/auth")
	guest.
		POST("/login", func(ctx *gin.Context) {
			var body struct {
				Email string `json:"email" binding:"required,email"`
			}
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var user models.User
			if err := db.Where(&models.User{Email: body.Email}).First(&user).Error; err != nil {
				log.Printf("[AuthLogin] error: %s\n", err.Error())
				ctx.Status(http.StatusUnauthorized)
				return
			}
			token, err := generateJWT(&user)
			if err != nil {
				log.Printf("[AuthLogin] error signing token: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"token": token})
		})
	return guest
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}
	initLogger()

	boot.InitDb()
	boot.InitScheduler()

	router := setupRouter()

	appHost := os.Getenv("APP_HOST")
	if apiEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
		cc.AllowOriginFunc = func(origin string) bool {
			match, _ := regexp.MatchString(appHost, origin)
			if match {
				return true
			}
			match, _ = regexp.MatchString("app:mobile", origin)
			return match
		}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		router.Use(cors.New(cc))
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("staydate", stayDateValidatorFunc)
		v.RegisterValidation("gtdate", gtdate)
	}

	router = maintenanceModeMiddleware(router)

	guestAuthRoutes(router)

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	{
		authorized = bookingHandlers(authorized)
		authorized = couponHandlers(authorized)
		authorized = mileageHandlers(authorized)
		authorized = productHandlers(authorized)

		authorized.
			GET("/users/me", func(ctx *gin.Context) {
				var user models.User
				userId := ctx.GetUint("id")
				db := db.GetDb()
				if err := db.
					Where(&models.User{ID: userId}).
					First(&user).
					Error; err != nil {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"data": user})
			})
	}

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "9090"
	}
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %s", err)
	}
}

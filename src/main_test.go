package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"tbs/src/db"
	"tbs/src/lib"
	"tbs/src/middlewares"
	"tbs/src/models"
	"tbs/src/types"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type apiPayment struct {
	merchantRef string
	amount      int64
}

type apiFakeGateway struct {
	payments map[string]apiPayment
}

func (g *apiFakeGateway) Verify(ctx context.Context, merchantRef string, paymentRef string) (*lib.VerifiedPayment, error) {
	p, ok := g.payments[paymentRef]
	if !ok {
		return nil, fmt.Errorf("%w: no such payment", types.ErrGatewayRejected)
	}
	if p.merchantRef != merchantRef {
		return nil, fmt.Errorf("%w: payment [%s] does not belong to this checkout", types.ErrGatewayRejected, paymentRef)
	}
	return &lib.VerifiedPayment{AmountPaid: p.amount, Currency: "krw", GatewayStatus: "succeeded"}, nil
}

type TestSuite struct {
	suite.Suite
	DB      *gorm.DB
	Gateway *apiFakeGateway
	User    *models.User
	Product *models.Product
	Token   *string
}

func (s *TestSuite) SetupSuite() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("staydate", stayDateValidatorFunc)
		v.RegisterValidation("gtdate", gtdate)
	}

	d, err := gorm.Open(sqlite.Open("file:apitest?mode=memory&cache=shared"))
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening the test database", err)
	}
	inner, err := d.DB()
	if err != nil {
		log.Fatalf("Error accessing inner db instance: %s\n", err.Error())
	}
	inner.SetMaxOpenConns(1)
	db.NewDB(d)
	s.DB = d

	err = d.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Room{},
		&models.Coupon{},
		&models.UserCoupon{},
		&models.Mileage{},
		&models.MileageLog{},
		&models.Booking{},
		&models.BookingItem{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	s.Gateway = &apiFakeGateway{payments: map[string]apiPayment{}}
	lib.NewGateway(s.Gateway)

	user := models.User{
		Email:      "someone@example.com",
		Name:       "Test User",
		Membership: "basic",
	}
	if err := d.Create(&user).Error; err != nil {
		log.Fatalf("Could not create user due to error: %s\n", err.Error())
	}
	s.User = &user

	product := models.Product{
		Type:      types.PRODUCT_TOUR,
		Name:      "City Tour",
		Location:  "Seoul",
		UnitPrice: 45_000,
		Currency:  "krw",
		Status:    types.PRODUCT_OPEN,
	}
	if err := d.Create(&product).Error; err != nil {
		log.Fatalf("Could not create product due to error: %s\n", err.Error())
	}
	s.Product = &product

	token, err := generateJWT(&user)
	if err != nil {
		log.Fatalf("Error generating JWT token: %s\n", err.Error())
		return
	}
	s.Token = &token
}

func (s *TestSuite) TearDownSuite() {
	inner, err := s.DB.DB()
	if err != nil {
		log.Printf("Error accessing inner db instance: %s\n", err.Error())
		return
	}
	inner.Close()
}

func (s *TestSuite) authorizedRouter() *gin.Engine {
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(middlewares.AuthMiddleware)
	bookingHandlers(apiv1)
	couponHandlers(apiv1)
	mileageHandlers(apiv1)
	productHandlers(apiv1)
	return router
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Setenv("MAINTENANCE_MODE", "false")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestAuthLogin() {
	router := setupRouter()
	guestAuthRoutes(router)

	jbody := map[string]any{"email": s.User.Email}
	sbody, _ := json.Marshal(&jbody)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(string(sbody)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
	rbytes, err := io.ReadAll(w.Body)
	assert.Nil(s.T(), err)
	token := gjson.GetBytes(rbytes, "token").String()
	assert.Greaterf(s.T(), len(token), 0, "Empty token")

	w = httptest.NewRecorder()
	jbody["email"] = "nobody@example.com"
	sbody, _ = json.Marshal(&jbody)
	req, _ = http.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(string(sbody)))
	router.ServeHTTP(w, req)
	assert.Equal(s.T(), 401, w.Code)
}

func (s *TestSuite) TestBookingRequiresAuth() {
	router := s.authorizedRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/bookings/mine", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 401, w.Code)
}

func (s *TestSuite) TestProducts() {
	router := s.authorizedRouter()
	token := *s.Token

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/products", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
	rbytes, _ := io.ReadAll(w.Body)
	count := gjson.GetBytes(rbytes, "count").Int()
	assert.GreaterOrEqual(s.T(), count, int64(1))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", fmt.Sprintf("/api/v1/products/%d", s.Product.ID), nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
	rbytes, _ = io.ReadAll(w.Body)
	assert.Equal(s.T(), s.Product.Name, gjson.GetBytes(rbytes, "data.name").String())
}

func (s *TestSuite) TestBookingCheckoutFlow() {
	router := s.authorizedRouter()
	token := *s.Token
	merchantRef := uuid.NewString()

	var bookingId int64
	s.Run("Should create a PENDING booking with 201 status", func() {
		jbody := map[string]any{
			"merchant_ref": merchantRef,
			"selections": []map[string]any{
				{"product_id": s.Product.ID, "count": 1},
			},
		}
		sbody, _ := json.Marshal(&jbody)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/bookings", strings.NewReader(string(sbody)))
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 201, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.Equal(s.T(), "pending", gjson.GetBytes(rbytes, "data.payment_status").String())
		assert.EqualValues(s.T(), 45_000, gjson.GetBytes(rbytes, "data.total_price").Int())
		bookingId = gjson.GetBytes(rbytes, "data.id").Int()
		assert.Greater(s.T(), bookingId, int64(0))
	})

	paymentRef := fmt.Sprintf("pi_%s", uuid.NewString())
	s.Gateway.payments[paymentRef] = apiPayment{merchantRef: merchantRef, amount: 45_000}

	s.Run("Should complete the booking on verify-payment", func() {
		jbody := map[string]any{
			"merchant_ref": merchantRef,
			"payment_ref":  paymentRef,
		}
		sbody, _ := json.Marshal(&jbody)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/bookings/verify-payment", strings.NewReader(string(sbody)))
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Equal(s.T(), "completed", gjson.GetBytes(rbytes, "data.payment_status").String())
		assert.EqualValues(s.T(), 45_000, gjson.GetBytes(rbytes, "data.final_price").Int())
	})

	s.Run("Should reject a payment for a different checkout with 402", func() {
		otherRef := uuid.NewString()
		cbody := map[string]any{
			"merchant_ref": otherRef,
			"selections": []map[string]any{
				{"product_id": s.Product.ID, "count": 1},
			},
		}
		sbody, _ := json.Marshal(&cbody)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/bookings", strings.NewReader(string(sbody)))
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 201, w.Code)

		vbody := map[string]any{
			"merchant_ref": otherRef,
			"payment_ref":  paymentRef,
		}
		sbody, _ = json.Marshal(&vbody)
		w = httptest.NewRecorder()
		req, _ = http.NewRequest("POST", "/api/v1/bookings/verify-payment", strings.NewReader(string(sbody)))
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 402, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Equal(s.T(), "GatewayRejected", gjson.GetBytes(rbytes, "code").String())
	})

	s.Run("Should confirm the completed booking", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", fmt.Sprintf("/api/v1/bookings/%d/confirm", bookingId), nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Equal(s.T(), "confirmed", gjson.GetBytes(rbytes, "data.payment_status").String())
	})

	s.Run("Should refuse to cancel a CONFIRMED booking with 409", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", fmt.Sprintf("/api/v1/bookings/%d/cancel", bookingId), nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 409, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Equal(s.T(), "InvalidStateError", gjson.GetBytes(rbytes, "code").String())
	})

	s.Run("Should list own bookings", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/bookings/mine", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.GreaterOrEqual(s.T(), gjson.GetBytes(rbytes, "count").Int(), int64(1))
	})
}

func (s *TestSuite) TestCouponAndMileageRoutes() {
	router := s.authorizedRouter()
	token := *s.Token

	coupon := models.Coupon{
		Name:          "Welcome 10%",
		DiscountType:  types.DISCOUNT_PERCENTAGE,
		DiscountValue: 10,
	}
	s.Require().NoError(s.DB.Create(&coupon).Error)

	s.Run("Should claim a coupon once", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", fmt.Sprintf("/api/v1/coupons/%d/claim", coupon.ID), nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 201, w.Code)

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("POST", fmt.Sprintf("/api/v1/coupons/%d/claim", coupon.ID), nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 409, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.Equal(s.T(), "CouponAlreadyClaimedError", gjson.GetBytes(rbytes, "code").String())
	})

	s.Run("Should list held coupons", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/coupons/mine", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 200, w.Code)
		rbytes, _ := io.ReadAll(w.Body)
		assert.GreaterOrEqual(s.T(), gjson.GetBytes(rbytes, "count").Int(), int64(1))
	})

	s.Run("Should expose mileage balance and history", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/mileage", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 200, w.Code)

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("GET", "/api/v1/mileage/history", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)
		assert.Equal(s.T(), 200, w.Code)
	})
}

func TestSuiteRun(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(TestSuite))
}

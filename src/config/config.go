package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const DATE_PARSE_FORMAT = "2006-01-02"

// CheckoutWindow is how long a PENDING booking may wait for payment before
// the expiry job cancels it.
func CheckoutWindow() time.Duration {
	raw := os.Getenv("CHECKOUT_WINDOW_MINUTES")
	mins, err := strconv.Atoi(raw)
	if err != nil || mins <= 0 {
		mins = 60
	}
	return time.Duration(mins) * time.Minute
}

// GatewayTimeout bounds the single external verification call.
func GatewayTimeout() time.Duration {
	raw := os.Getenv("GATEWAY_TIMEOUT_SECONDS")
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		secs = 10
	}
	return time.Duration(secs) * time.Second
}

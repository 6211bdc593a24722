package boot

import (
	"log"
	"time"

	"tbs/src/config"
	"tbs/src/db"
	"tbs/src/lib"
	"tbs/src/models"
	"tbs/src/utils"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
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

	return db
}

func InitScheduler() {
	window := config.CheckoutWindow()
	id, err := lib.CreateCronJob(func(w time.Duration) {
		if _, err := utils.ExpireStaleBookings(w); err != nil {
			log.Printf("Error on stale booking sweep: %s\n", err.Error())
		}
	}, 5*time.Minute, window)
	if err != nil {
		log.Printf("Error scheduling job: %s\n", err.Error())
		return
	}
	log.Printf("Job ID: %s\n", *id)

	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	sched.Start()
}

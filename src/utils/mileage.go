package utils

import (
	"errors"
	"log"

	"tbs/src/db"
	"tbs/src/models"
	"tbs/src/types"

	"gorm.io/gorm"
)

// GetMileage returns the user's mileage account, materializing an empty
// one on first read so balances are always reportable.
func GetMileage(userId uint) (*models.Mileage, error) {
	db := db.GetDb()
	var mileage models.Mileage
	err := db.Where(&models.Mileage{UserID: userId}).First(&mileage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		mileage = models.Mileage{UserID: userId, Balance: 0}
		if err := db.Create(&mileage).Error; err != nil {
			return nil, err
		}
		return &mileage, nil
	}
	if err != nil {
		return nil, err
	}
	return &mileage, nil
}

// GrantMileage credits points outside the booking flow (promotions,
// support adjustments) and records the movement in the audit log.
func GrantMileage(userId uint, amount int64) (*models.Mileage, error) {
	db := db.GetDb()
	var mileage *models.Mileage
	err := db.Transaction(func(tx *gorm.DB) error {
		var m models.Mileage
		err := tx.Where(&models.Mileage{UserID: userId}).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			m = models.Mileage{UserID: userId}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		res := tx.
			Model(&models.Mileage{}).
			Where("user_id = ?", userId).
			Update("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Where(&models.Mileage{UserID: userId}).First(&m).Error; err != nil {
			return err
		}
		entry := models.MileageLog{
			UserID:  userId,
			Delta:   amount,
			Balance: m.Balance,
			Reason:  types.MILEAGE_GRANT,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		mileage = &m
		return nil
	})
	if err != nil {
		log.Printf("GrantMileage failed for user [%d]: %s\n", userId, err.Error())
		return nil, err
	}
	return mileage, nil
}

func GetMileageHistory(userId uint) ([]models.MileageLog, error) {
	db := db.GetDb()
	var logs []models.MileageLog
	err := db.
		Model(&models.MileageLog{}).
		Where(&models.MileageLog{UserID: userId}).
		Order("created_at DESC").
		Limit(50).
		Find(&logs).
		Error
	return logs, err
}

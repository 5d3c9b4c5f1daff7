package database

import (
	"log"

	"github.com/dealradar/price-tracker/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Initialize(dbPath string) error {
	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return err
	}

	log.Println("Database connected successfully")

	// Clean up rows that would violate the unique indexes AutoMigrate adds
	if err := cleanupDuplicateSubscriptions(DB); err != nil {
		return err
	}

	err = DB.AutoMigrate(
		&models.Product{},
		&models.PriceHistoryEntry{},
		&models.TrackedSubscription{},
		&models.User{},
	)
	if err != nil {
		return err
	}

	if err := RunMigrations(DB); err != nil {
		return err
	}

	log.Println("Database migration completed")
	return nil
}

func GetDB() *gorm.DB {
	return DB
}

package database

import (
	"fmt"
	"time"

	"insta-iq-go/internal/model"
	"insta-iq-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// OpenMySQL 打开 MySQL 连接，配置连接池并迁移导入记录表。
func OpenMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&model.IngestionRun{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ingestion_runs: %w", err)
	}

	log.Info("MySQL database connected successfully")
	return db, nil
}

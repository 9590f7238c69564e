package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"evoting-backend/config"
	"evoting-backend/migrations"
	"evoting-backend/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是全局数据库连接
var DB *gorm.DB

// InitDB 初始化数据库连接并迁移模型
func InitDB(cfg *config.Config) error {
	// 配置GORM日志
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	// 构建DSN
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	// TranslateError让驱动把唯一键冲突统一翻译为gorm.ErrDuplicatedKey
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	if err := Migrate(DB); err != nil {
		return err
	}

	log.Println("数据库连接和迁移成功")
	return nil
}

// Migrate 自动迁移所有模型
// votes表上的(username, poll_id)唯一索引由此建立
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Poll{},
		&models.Candidate{},
		&models.Vote{},
	); err != nil {
		return fmt.Errorf("迁移模型失败: %w", err)
	}

	return migrations.BackfillUserRoles(db)
}

// CloseDB 关闭数据库连接
func CloseDB() {
	if DB == nil {
		return
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Printf("获取数据库连接失败: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("关闭数据库连接失败: %v", err)
		return
	}

	log.Println("数据库连接已关闭")
}

package db

import (
	"fmt"
	"net/url"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"clipwave/internal/config"
	"clipwave/internal/models"
)

// DSN 构造适用于 GORM 的数据库连接串
func DSN(d config.Database) (string, error) {
	switch d.Driver {
	case "mysql":
		v := url.Values{}
		// 默认参数
		if _, ok := d.Params["parseTime"]; !ok {
			v.Set("parseTime", "true")
		}
		if _, ok := d.Params["loc"]; !ok {
			v.Set("loc", "Local")
		}
		if _, ok := d.Params["charset"]; !ok {
			v.Set("charset", "utf8mb4")
		}
		for k, val := range d.Params {
			v.Set(k, val)
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", d.User, d.Password, d.Host, d.Port, d.Name, v.Encode()), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s", d.Host, d.Port, d.User, d.Password, d.Name)
		if _, ok := d.Params["sslmode"]; !ok {
			dsn += " sslmode=disable"
		}
		for k, val := range d.Params {
			dsn += fmt.Sprintf(" %s=%s", k, val)
		}
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", d.Driver)
	}
}

// OpenGorm 使用 GORM 打开数据库连接并应用连接池参数
func OpenGorm(d config.Database) (*gorm.DB, error) {
	dsn, err := DSN(d)
	if err != nil {
		return nil, err
	}
	var gdb *gorm.DB
	switch d.Driver {
	case "mysql":
		gdb, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	case "postgres":
		gdb, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported driver: %s", d.Driver)
	}
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if d.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(d.MaxOpenConns)
	}
	if d.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(d.MaxIdleConns)
	}
	return gdb, nil
}

// Migrate 自动迁移数据库结构
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Video{},
		&models.VideoStats{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.Danmu{},
	)
}

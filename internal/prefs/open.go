package prefs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// 支持的存储驱动
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("prefs: unknown driver")

// Config 偏好存储配置
type Config struct {
	Driver        string `mapstructure:"driver" validate:"oneof=memory redis sqlite mysql postgres"`
	DSN           string `mapstructure:"dsn" validate:"required_if=Driver sqlite,required_if=Driver mysql,required_if=Driver postgres"`
	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Driver redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"min=0,max=15"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
}

// Closer 释放存储持有的连接
type Closer func() error

func noopCloser() error { return nil }

// Open 按配置打开存储
func Open(cfg Config, logger *zap.Logger) (Store, Closer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))

	switch driver {
	case "", DriverMemory:
		logger.Info("preferences store", zap.String("driver", DriverMemory))
		return NewMemory(), noopCloser, nil

	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		logger.Info("preferences store", zap.String("driver", driver), zap.String("addr", cfg.RedisAddr))
		return NewRedis(client, cfg.RedisPrefix), client.Close, nil

	case DriverSQLite, DriverMySQL, DriverPostgres:
		db, err := gorm.Open(dialector(driver, cfg.DSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("prefs: open %s: %w", driver, err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("prefs: %s pool: %w", driver, err)
		}
		if driver == DriverSQLite {
			// sqlite 单写者；内存库每个连接都是独立的库
			sqlDB.SetMaxOpenConns(1)
		}
		store, err := NewGorm(db)
		if err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		logger.Info("preferences store", zap.String("driver", driver))
		return store, sqlDB.Close, nil
	}

	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}

func dialector(driver, dsn string) gorm.Dialector {
	switch driver {
	case DriverMySQL:
		return mysql.Open(dsn)
	case DriverPostgres:
		return postgres.Open(dsn)
	default:
		return sqlite.Open(dsn)
	}
}

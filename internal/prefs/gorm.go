package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Preference preferences 表的一行
type Preference struct {
	Key       string `gorm:"column:pref_key;primaryKey;size:128"`
	Value     string `gorm:"column:value;size:1024;not null"`
	UpdatedAt time.Time
}

// TableName 实现 gorm 的 Tabler
func (Preference) TableName() string {
	return "preferences"
}

// Gorm 以 SQL 表保存偏好
type Gorm struct {
	db *gorm.DB
}

// NewGorm 创建 SQL 存储并自动迁移 preferences 表
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&Preference{}); err != nil {
		return nil, fmt.Errorf("prefs: migrate preferences: %w", err)
	}
	return &Gorm{db: db}, nil
}

// Get 实现 Store
func (g *Gorm) Get(ctx context.Context, key, def string) (string, error) {
	if err := checkKey(key); err != nil {
		return def, err
	}
	var p Preference
	err := g.db.WithContext(ctx).Where("pref_key = ?", key).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("prefs: select %q: %w", key, err)
	}
	return p.Value, nil
}

// Set 实现 Store（存在则更新）
func (g *Gorm) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	p := Preference{Key: key, Value: value}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("prefs: upsert %q: %w", key, err)
	}
	return nil
}

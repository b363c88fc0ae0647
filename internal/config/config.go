package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"dormitory-forms/internal/logger"
	"dormitory-forms/internal/prefs"
)

// EnvPrefix 环境变量前缀，例如 DORM_SERVER_ADDR 覆盖 server.addr
const EnvPrefix = "DORM"

// Config 服务配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Form      FormConfig      `mapstructure:"form"`
	Log       logger.Config   `mapstructure:"log"`
	Prefs     prefs.Config    `mapstructure:"prefs"`
	Snowflake SnowflakeConfig `mapstructure:"snowflake"`
}

// ServerConfig HTTP 服务
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	Swagger         bool          `mapstructure:"swagger"`
	// SessionTTL 表单会话空闲过期时间，0 表示不过期
	SessionTTL time.Duration `mapstructure:"session_ttl" validate:"gte=0"`
	// MaxSessions 活跃会话上限，0 表示不限
	MaxSessions int `mapstructure:"max_sessions" validate:"gte=0"`
}

// BackendConfig 后端 REST 服务
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// FormConfig 表单行为
type FormConfig struct {
	// CenturyPrefix 两位年份补全用的世纪前缀
	CenturyPrefix     string        `mapstructure:"century_prefix" validate:"len=2,numeric"`
	HighlightDuration time.Duration `mapstructure:"highlight_duration" validate:"gt=0"`
	ProfileURL        string        `mapstructure:"profile_url" validate:"required"`
}

// SnowflakeConfig 会话ID生成器
type SnowflakeConfig struct {
	DatacenterID int64 `mapstructure:"datacenter_id" validate:"min=0,max=31"`
	WorkerID     int64 `mapstructure:"worker_id" validate:"min=0,max=31"`
}

// setDefaults 所有键都必须有默认值，否则环境变量无法覆盖
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.swagger", true)
	v.SetDefault("server.session_ttl", 30*time.Minute)
	v.SetDefault("server.max_sessions", 10000)

	v.SetDefault("backend.base_url", "http://localhost:3000/api")
	v.SetDefault("backend.timeout", 15*time.Second)

	v.SetDefault("form.century_prefix", "20")
	v.SetDefault("form.highlight_duration", 3*time.Second)
	v.SetDefault("form.profile_url", "/profile")

	logDefaults := logger.DefaultConfig()
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.format", logDefaults.Format)
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", logDefaults.MaxSizeMB)
	v.SetDefault("log.max_backups", logDefaults.MaxBackups)
	v.SetDefault("log.max_age_days", logDefaults.MaxAgeDays)
	v.SetDefault("log.compress", false)

	v.SetDefault("prefs.driver", prefs.DriverMemory)
	v.SetDefault("prefs.dsn", "")
	v.SetDefault("prefs.redis_addr", "")
	v.SetDefault("prefs.redis_password", "")
	v.SetDefault("prefs.redis_db", 0)
	v.SetDefault("prefs.redis_prefix", prefs.DefaultRedisPrefix)

	v.SetDefault("snowflake.datacenter_id", 0)
	v.SetDefault("snowflake.worker_id", 1)
}

// Load 加载配置
// 优先级：环境变量 > 配置文件 > 默认值；path 为空时不读文件
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid %s: %w", strings.Join(fields, ", "), err)
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

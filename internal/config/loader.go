package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"biostats-go/internal/stats"

	"github.com/spf13/viper"
)

var (
	globalConfig *Config
	once         sync.Once
)

// DefaultExcludedDataset 默认排除的数据集
const DefaultExcludedDataset = "pubtator_central"

// LoadConfig 加载配置文件
func LoadConfig(configFile string) (*Config, error) {
	var err error
	var cfg *Config

	once.Do(func() {
		cfg, err = loadConfigFromFile(configFile)
		if err == nil {
			globalConfig = cfg
		}
	})

	return globalConfig, err
}

// loadConfigFromFile 从文件加载配置
func loadConfigFromFile(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// BIOSTATS_DASHBOARD_PASSAGE_POLICY 覆盖 dashboard.passage_policy
	v.SetEnvPrefix("biostats")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	return decode(v)
}

// LoadOffline 供命令行工具使用，不校验服务端的密钥和管理员配置
func LoadOffline(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	SetDefaults(&cfg)

	if err := validateStorage(&cfg); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return &cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	SetDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// SetDefaults 设置默认值
func SetDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 18080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./database/biostats.db"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Algorithm == "" {
		cfg.JWT.Algorithm = "HS256"
	}
	if cfg.JWT.ExpireMinutes == 0 {
		cfg.JWT.ExpireMinutes = 43200 // 30天
	}
	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "admin"
	}
	if cfg.CORS.AllowMethods == nil {
		cfg.CORS.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if cfg.CORS.AllowHeaders == nil {
		cfg.CORS.AllowHeaders = []string{"*"}
	}
	if cfg.Catalog.ExcludedDatasets == nil {
		cfg.Catalog.ExcludedDatasets = []string{DefaultExcludedDataset}
	}
	if cfg.Catalog.CounterSplit == "" {
		cfg.Catalog.CounterSplit = "train"
	}
	if cfg.Dashboard.PassagePolicy == "" {
		cfg.Dashboard.PassagePolicy = stats.PassageLastWriteWins.String()
	}
	if cfg.Dashboard.HistogramBins == 0 {
		cfg.Dashboard.HistogramBins = stats.DefaultHistogramBins
	}
	if cfg.Dashboard.MaxConcurrentFetches == 0 {
		cfg.Dashboard.MaxConcurrentFetches = 4
	}
	if cfg.Dashboard.SessionTTLMinutes == 0 {
		cfg.Dashboard.SessionTTLMinutes = 24 * 60
	}
	if cfg.Dashboard.ProgressTTLSeconds == 0 {
		cfg.Dashboard.ProgressTTLSeconds = 600
	}
	if cfg.Dashboard.FetchTimeoutSeconds == 0 {
		cfg.Dashboard.FetchTimeoutSeconds = 600
	}
	if cfg.Hub.TimeoutSeconds == 0 {
		cfg.Hub.TimeoutSeconds = 120
	}
}

// validateConfig 验证配置
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务器端口: %d", cfg.Server.Port)
	}

	if cfg.JWT.SecretKey == "" {
		return fmt.Errorf("JWT密钥不能为空")
	}

	if cfg.Admin.Password == "" {
		return fmt.Errorf("管理员密码不能为空")
	}

	return validateStorage(cfg)
}

// validateStorage 验证统计和存储相关配置
func validateStorage(cfg *Config) error {
	if _, err := stats.ParsePassagePolicy(cfg.Dashboard.PassagePolicy); err != nil {
		return err
	}

	if cfg.Dashboard.HistogramBins < 1 {
		return fmt.Errorf("无效的直方图分箱数: %d", cfg.Dashboard.HistogramBins)
	}

	if cfg.Dashboard.MaxConcurrentFetches < 1 {
		return fmt.Errorf("无效的最大并发统计数: %d", cfg.Dashboard.MaxConcurrentFetches)
	}

	// 检查数据库目录是否存在
	if cfg.Database.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Database.Path)
		if _, err := os.Stat(dbDir); os.IsNotExist(err) {
			if err := os.MkdirAll(dbDir, 0755); err != nil {
				return fmt.Errorf("创建数据库目录失败: %w", err)
			}
		}
	}

	return nil
}

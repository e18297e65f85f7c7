package config

import (
	"fmt"
	"time"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis_service"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Admin     AdminConfig     `mapstructure:"admin"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Hub       HubConfig       `mapstructure:"hub"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ProductionMode bool   `mapstructure:"production_mode"`
}

// GetAddress 获取服务器地址
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// GetAddress 获取Redis地址
func (r *RedisConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	Algorithm     string `mapstructure:"algorithm"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
}

// GetExpireDuration 获取过期时间
func (j *JWTConfig) GetExpireDuration() time.Duration {
	return time.Duration(j.ExpireMinutes) * time.Minute
}

// AdminConfig 管理员配置
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CORSConfig CORS配置
type CORSConfig struct {
	Origins          []string `mapstructure:"origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
}

// CatalogConfig 数据集目录配置
type CatalogConfig struct {
	ExcludedDatasets []string `mapstructure:"excluded_datasets"`
	// CounterSplit 计数器菜单取自该划分
	CounterSplit string `mapstructure:"counter_split"`
}

// DashboardConfig 统计面板配置
type DashboardConfig struct {
	PassagePolicy        string `mapstructure:"passage_policy"`
	HistogramBins        int    `mapstructure:"histogram_bins"`
	MaxConcurrentFetches int    `mapstructure:"max_concurrent_fetches"`
	SessionTTLMinutes    int    `mapstructure:"session_ttl_minutes"`
	ProgressTTLSeconds   int    `mapstructure:"progress_ttl_seconds"`
	FetchTimeoutSeconds  int    `mapstructure:"fetch_timeout_seconds"`
}

// GetSessionTTL 会话状态过期时间
func (d *DashboardConfig) GetSessionTTL() time.Duration {
	return time.Duration(d.SessionTTLMinutes) * time.Minute
}

// GetProgressTTL 进度记录过期时间
func (d *DashboardConfig) GetProgressTTL() time.Duration {
	return time.Duration(d.ProgressTTLSeconds) * time.Second
}

// GetFetchTimeout 单次统计的超时时间
func (d *DashboardConfig) GetFetchTimeout() time.Duration {
	return time.Duration(d.FetchTimeoutSeconds) * time.Second
}

// HubConfig 远程数据集仓库配置
type HubConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// GetTimeout 获取请求超时时间
func (h *HubConfig) GetTimeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// IngestConfig 记录写入接口配置
type IngestConfig struct {
	APIKey string `mapstructure:"api_key"`
}

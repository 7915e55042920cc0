package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// LetterConfig 定义公文流程的核心业务配置
type LetterConfig struct {
	VerifyBaseURL   string // 验证页基础地址，QR 码内容为 {VerifyBaseURL}/{qrHash}
	QuickBaseURL    string // 快捷操作页基础地址，魔法链接为 {QuickBaseURL}/quick/{action}/{token}
	StampServiceURL string // PDF 盖章服务地址
	StampTimeout    time.Duration
}

// MagicLinkConfig 定义魔法链接的有效期配置（按动作类型区分）
type MagicLinkConfig struct {
	ApproveTTL     time.Duration // 审批链接有效期，默认 30 分钟
	SignTTL        time.Duration // 签署链接有效期，默认 30 分钟
	DispositionTTL time.Duration // 批示链接有效期，默认 30 天
}

// WhatsAppConfig 定义 WhatsApp 网关配置
type WhatsAppConfig struct {
	GatewayURL string // 网关地址，留空时通知仅记录日志
	APIKey     string
	Timeout    time.Duration
}

// StorageConfig 定义本地文件存储配置
type StorageConfig struct {
	BasePath string // 文件落盘目录，默认 "./data/uploads"
	BaseURL  string // 对外文件 URL 前缀，默认 "/uploads"
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"，留空使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 服务配置（OTP 尝试限流）
type RedisConfig struct {
	Address  string // Redis 服务地址，格式 "host:port"，留空关闭 Redis 限流
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// JWTConfig 定义 JWT 认证相关配置
type JWTConfig struct {
	Secret        string        // JWT 签名密钥，必须至少 32 字符
	Issuer        string        // JWT 签发者标识，默认 "esurat"
	AccessExpiry  time.Duration // 访问令牌有效期，默认 15 分钟
	RefreshExpiry time.Duration // 刷新令牌有效期，默认 7 天
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server    ServerConfig    // HTTP 服务器配置
	Letter    LetterConfig    // 公文流程配置
	MagicLink MagicLinkConfig // 魔法链接配置
	WhatsApp  WhatsAppConfig  // WhatsApp 网关配置
	Storage   StorageConfig   // 文件存储配置
	CORS      CORSConfig      // 跨域配置
	Log       LogConfig       // 日志配置
	Database  DatabaseConfig  // 数据库配置
	Redis     RedisConfig     // Redis 配置
	JWT       JWTConfig       // JWT 认证配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: ESURAT_
// 例如: ESURAT_SERVER_HOST, ESURAT_JWT_SECRET
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("esurat")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("letter.verify_base_url", "http://localhost:8080/verify")
	viper.SetDefault("letter.quick_base_url", "http://localhost:3000")
	viper.SetDefault("letter.stamp_service_url", "http://localhost:5000/stamp")
	viper.SetDefault("letter.stamp_timeout", "30s")
	viper.SetDefault("magiclink.approve_ttl", "30m")
	viper.SetDefault("magiclink.sign_ttl", "30m")
	viper.SetDefault("magiclink.disposition_ttl", "720h")
	viper.SetDefault("whatsapp.gateway_url", "")
	viper.SetDefault("whatsapp.api_key", "")
	viper.SetDefault("whatsapp.timeout", "15s")
	viper.SetDefault("storage.base_path", "./data/uploads")
	viper.SetDefault("storage.base_url", "/uploads")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.issuer", "esurat")
	viper.SetDefault("jwt.access_expiry", "15m")
	viper.SetDefault("jwt.refresh_expiry", "168h")

	approveTTL, err := time.ParseDuration(viper.GetString("magiclink.approve_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid magiclink.approve_ttl: %w", err)
	}
	signTTL, err := time.ParseDuration(viper.GetString("magiclink.sign_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid magiclink.sign_ttl: %w", err)
	}
	dispositionTTL, err := time.ParseDuration(viper.GetString("magiclink.disposition_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid magiclink.disposition_ttl: %w", err)
	}

	stampTimeout, err := time.ParseDuration(viper.GetString("letter.stamp_timeout"))
	if err != nil {
		stampTimeout = 30 * time.Second
	}

	waTimeout, err := time.ParseDuration(viper.GetString("whatsapp.timeout"))
	if err != nil {
		waTimeout = 15 * time.Second
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("jwt.access_expiry"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	refreshExpiry, err := time.ParseDuration(viper.GetString("jwt.refresh_expiry"))
	if err != nil {
		refreshExpiry = 7 * 24 * time.Hour
	}

	jwtSecret := viper.GetString("jwt.secret")

	// 安全检查：禁止使用默认的 JWT secret
	if jwtSecret == "change-me-in-production" {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret cannot be the default value. Please set ESURAT_JWT_SECRET environment variable")
	}

	// JWT secret 必须至少 32 字符
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret must be at least 32 characters long")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Letter: LetterConfig{
			VerifyBaseURL:   strings.TrimRight(viper.GetString("letter.verify_base_url"), "/"),
			QuickBaseURL:    strings.TrimRight(viper.GetString("letter.quick_base_url"), "/"),
			StampServiceURL: viper.GetString("letter.stamp_service_url"),
			StampTimeout:    stampTimeout,
		},
		MagicLink: MagicLinkConfig{
			ApproveTTL:     approveTTL,
			SignTTL:        signTTL,
			DispositionTTL: dispositionTTL,
		},
		WhatsApp: WhatsAppConfig{
			GatewayURL: viper.GetString("whatsapp.gateway_url"),
			APIKey:     viper.GetString("whatsapp.api_key"),
			Timeout:    waTimeout,
		},
		Storage: StorageConfig{
			BasePath: viper.GetString("storage.base_path"),
			BaseURL:  viper.GetString("storage.base_url"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:        jwtSecret,
			Issuer:        viper.GetString("jwt.issuer"),
			AccessExpiry:  accessExpiry,
			RefreshExpiry: refreshExpiry,
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env（用于从 backend/ 子目录运行的情况）
//
// 注意：
//   - 如果文件不存在，静默失败（.env 是可选的）
//   - 环境变量不会被覆盖（已存在的环境变量优先级更高）
func loadEnvFile() {
	// 尝试当前目录的 .env
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	// 尝试父目录的 .env（从 backend/ 目录运行时）
	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}

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
	Mode string // gin 运行模式: debug, release, test
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空表示仅输出到 stdout
	MaxSizeMB   int    // 单个日志文件最大体积（MB）
	MaxBackups  int    // 保留的历史日志文件数量
	MaxAgeDays  int    // 历史日志保留天数
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"，为空时使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 服务配置，登录限流在启用时使用 Redis 存储计数
type RedisConfig struct {
	Enabled  bool   // 是否启用 Redis，禁用时登录限流退化为进程内存储
	Address  string // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// JWTConfig 定义 JWT 认证相关配置
type JWTConfig struct {
	Secret        string        // JWT 签名密钥，必须至少 32 字符
	Issuer        string        // JWT 签发者标识，默认 "amz-saas"
	AccessExpiry  time.Duration // 访问令牌有效期，默认 24 小时
	RefreshExpiry time.Duration // 刷新令牌有效期，默认 7 天
}

// CrawlerConfig 定义 IMAP 邮箱抓取的连接与搜索参数
type CrawlerConfig struct {
	ConnectTimeout     time.Duration // TLS 建连超时，默认 30s
	CommandTimeout     time.Duration // 单条 IMAP 命令超时，默认 60s
	RunTimeout         time.Duration // 单个账户整轮抓取的截止时间，默认 5m
	InsecureSkipVerify bool          // 跳过 IMAP 服务器证书校验，默认 true
	Folders            []string      // 抓取的文件夹候选列表，不可用的文件夹自动跳过
}

// SchedulerConfig 定义定时抓取任务配置
type SchedulerConfig struct {
	Enabled  bool   // 是否启用定时抓取
	CronExpr string // cron 表达式，默认 "0 7 * * *"（每天 07:00）
	Timezone string // 时区，默认 "Asia/Shanghai"
	Keyword  string // 搜索关键词，启用定时任务时必填
	Brand    string // 抓取结果写入客户表时的品牌
	Tag      string // 抓取结果写入客户表时的标签
	Remarks  string // 抓取结果备注前缀
	// ExtractMode 发件人提取方式："from"（默认，取 From 头）或 "subject"（从主题解析）
	ExtractMode string
	DaysBack    int // 搜索窗口回溯天数，默认 7
}

// SMTPConfig 定义外发邮件配置
type SMTPConfig struct {
	Timeout         time.Duration     // SMTP 发送超时，默认 30s
	ServerOverrides map[string]string // 按发件域名覆盖 SMTP 服务器，格式 domain=host:port
}

// RSAConfig 定义密码传输加密的密钥配置
type RSAConfig struct {
	KeyDir string // RSA 密钥对存放目录，默认 "keys"
}

// RateLimitConfig 定义登录限流配置
type RateLimitConfig struct {
	LoginWindow   time.Duration // 失败计数窗口，默认 15m
	LoginMax      int           // 窗口内允许的失败次数，默认 5
	LoginBlockTTL time.Duration // 超限后的封禁时长，默认 30m
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Crawler   CrawlerConfig
	Scheduler SchedulerConfig
	SMTP      SMTPConfig
	RSA       RSAConfig
	RateLimit RateLimitConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: AMZSAAS_
// 例如: AMZSAAS_SERVER_PORT, AMZSAAS_JWT_SECRET, AMZSAAS_SCHEDULER_KEYWORD
func Load() (*Config, error) {
	// .env 文件是可选的，缺失时静默跳过
	loadEnvFile()

	viper.SetEnvPrefix("amzsaas")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.issuer", "amz-saas")
	viper.SetDefault("jwt.access_expiry", "24h")
	viper.SetDefault("jwt.refresh_expiry", "168h")
	viper.SetDefault("crawler.connect_timeout", "30s")
	viper.SetDefault("crawler.command_timeout", "60s")
	viper.SetDefault("crawler.run_timeout", "5m")
	viper.SetDefault("crawler.insecure_skip_verify", true)
	viper.SetDefault("crawler.folders", "INBOX,Sent,Sent Messages,Sent Items,Junk,Spam,Bulk Mail,Deleted,Trash")
	viper.SetDefault("scheduler.enabled", false)
	viper.SetDefault("scheduler.cron", "0 7 * * *")
	viper.SetDefault("scheduler.timezone", "Asia/Shanghai")
	viper.SetDefault("scheduler.keyword", "")
	viper.SetDefault("scheduler.brand", "")
	viper.SetDefault("scheduler.tag", "")
	viper.SetDefault("scheduler.remarks", "自动抓取")
	viper.SetDefault("scheduler.extract_mode", "from")
	viper.SetDefault("scheduler.days_back", 7)
	viper.SetDefault("smtp.timeout", "30s")
	viper.SetDefault("smtp.server_overrides", "")
	viper.SetDefault("rsa.key_dir", "keys")
	viper.SetDefault("ratelimit.login_window", "15m")
	viper.SetDefault("ratelimit.login_max", 5)
	viper.SetDefault("ratelimit.login_block_ttl", "30m")

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	jwtSecret := viper.GetString("jwt.secret")

	// 禁止使用默认的 JWT secret 上线
	if jwtSecret == "change-me-in-production" {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret cannot be the default value. Please set AMZSAAS_JWT_SECRET environment variable")
	}
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret must be at least 32 characters long")
	}

	folders := parseList(viper.GetString("crawler.folders"))
	if len(folders) == 0 {
		folders = []string{"INBOX"}
	}

	daysBack := viper.GetInt("scheduler.days_back")
	if daysBack <= 0 {
		daysBack = 7
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
			Mode: viper.GetString("server.mode"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			File:        viper.GetString("log.file"),
			MaxSizeMB:   viper.GetInt("log.max_size_mb"),
			MaxBackups:  viper.GetInt("log.max_backups"),
			MaxAgeDays:  viper.GetInt("log.max_age_days"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: durationOr("database.conn_max_lifetime", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:        jwtSecret,
			Issuer:        viper.GetString("jwt.issuer"),
			AccessExpiry:  durationOr("jwt.access_expiry", 24*time.Hour),
			RefreshExpiry: durationOr("jwt.refresh_expiry", 7*24*time.Hour),
		},
		Crawler: CrawlerConfig{
			ConnectTimeout:     durationOr("crawler.connect_timeout", 30*time.Second),
			CommandTimeout:     durationOr("crawler.command_timeout", 60*time.Second),
			RunTimeout:         durationOr("crawler.run_timeout", 5*time.Minute),
			InsecureSkipVerify: viper.GetBool("crawler.insecure_skip_verify"),
			Folders:            folders,
		},
		Scheduler: SchedulerConfig{
			Enabled:     viper.GetBool("scheduler.enabled"),
			CronExpr:    viper.GetString("scheduler.cron"),
			Timezone:    viper.GetString("scheduler.timezone"),
			Keyword:     viper.GetString("scheduler.keyword"),
			Brand:       viper.GetString("scheduler.brand"),
			Tag:         viper.GetString("scheduler.tag"),
			Remarks:     viper.GetString("scheduler.remarks"),
			ExtractMode: viper.GetString("scheduler.extract_mode"),
			DaysBack:    daysBack,
		},
		SMTP: SMTPConfig{
			Timeout:         durationOr("smtp.timeout", 30*time.Second),
			ServerOverrides: parseOverrides(viper.GetString("smtp.server_overrides")),
		},
		RSA: RSAConfig{
			KeyDir: viper.GetString("rsa.key_dir"),
		},
		RateLimit: RateLimitConfig{
			LoginWindow:   durationOr("ratelimit.login_window", 15*time.Minute),
			LoginMax:      viper.GetInt("ratelimit.login_max"),
			LoginBlockTTL: durationOr("ratelimit.login_block_ttl", 30*time.Minute),
		},
	}

	if cfg.Scheduler.Enabled && cfg.Scheduler.Keyword == "" {
		return nil, fmt.Errorf("scheduler.keyword is required when the scheduler is enabled")
	}
	if cfg.Database.Type != "" && cfg.Database.Type != "mysql" && cfg.Database.Type != "postgres" {
		return nil, fmt.Errorf("unsupported database.type %q (want mysql or postgres)", cfg.Database.Type)
	}
	if cfg.Database.Type != "" && cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required when database.type is set")
	}

	return cfg, nil
}

// durationOr 解析配置键对应的时间段，解析失败时返回默认值
func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// parseList 将逗号分隔的字符串解析为字符串切片，已去除空白字符
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

// parseOverrides 解析 "domain=host:port" 形式的逗号分隔键值对，域名转小写
func parseOverrides(value string) map[string]string {
	out := make(map[string]string)
	for _, item := range parseList(value) {
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

// loadEnvFile 尝试加载当前目录或父目录的 .env 文件，已存在的环境变量不会被覆盖
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}
	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}

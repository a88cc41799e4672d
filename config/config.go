package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置结构体
type Config struct {
	Server ServerConfig `yaml:"server"`
	Mongo  MongoConfig  `yaml:"mongo"`
	JWT    JWTConfig    `yaml:"jwt"`
	Log    LogConfig    `yaml:"log"`
	Redis  RedisConfig  `yaml:"redis"`
	Push   PushConfig   `yaml:"push"`
	Mirror MirrorConfig `yaml:"mirror"`
	Map    MapConfig    `yaml:"map"`
	Upload UploadConfig `yaml:"upload"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port         string        `yaml:"port"`         // 服务器监听端口
	ReadTimeout  time.Duration `yaml:"readTimeout"`  // 读取超时时间
	WriteTimeout time.Duration `yaml:"writeTimeout"` // 写入超时时间
	IdleTimeout  time.Duration `yaml:"idleTimeout"`  // 空闲超时时间
}

// MongoConfig MongoDB配置
type MongoConfig struct {
	URI      string        `yaml:"uri"`      // 连接URI
	Database string        `yaml:"database"` // 数据库名称
	Timeout  time.Duration `yaml:"timeout"`  // 单次操作超时时间
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret     string        `yaml:"secret"`     // JWT密钥
	ExpireTime time.Duration `yaml:"expireTime"` // JWT过期时间
	Issuer     string        `yaml:"issuer"`     // JWT签发者
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`      // 日志级别
	Filename   string `yaml:"filename"`   // 日志文件名
	MaxSize    int    `yaml:"maxSize"`    // 单个日志文件最大大小(MB)
	MaxBackups int    `yaml:"maxBackups"` // 最大备份文件数
	MaxAge     int    `yaml:"maxAge"`     // 最大保存天数
	Compress   bool   `yaml:"compress"`   // 是否压缩
}

// RedisConfig Redis配置（在线状态）
type RedisConfig struct {
	Host     string `yaml:"host"`     // Redis主机地址
	Port     int    `yaml:"port"`     // Redis端口
	Password string `yaml:"password"` // Redis密码
	DB       int    `yaml:"db"`       // Redis数据库编号
}

// PushConfig APNs推送配置
type PushConfig struct {
	Enabled bool   `yaml:"enabled"` // 是否启用推送
	KeyFile string `yaml:"keyFile"` // AuthKey p8文件路径
	KeyID   string `yaml:"keyId"`   // APNs Key ID
	TeamID  string `yaml:"teamId"`  // 开发者Team ID
	Topic   string `yaml:"topic"`   // app bundle id
	Sandbox bool   `yaml:"sandbox"` // 是否使用沙盒环境
	TTL     int    `yaml:"ttl"`     // 推送有效期（秒）
}

// MirrorConfig 外部镜像同步配置
type MirrorConfig struct {
	Enabled bool          `yaml:"enabled"` // 是否启用镜像
	BaseURL string        `yaml:"baseUrl"` // 镜像库根地址
	Timeout time.Duration `yaml:"timeout"` // 请求超时时间
}

// MapConfig 地图检索配置
type MapConfig struct {
	Host   string `yaml:"host"`   // 地图API主机
	AK     string `yaml:"ak"`     // 访问密钥
	Radius int    `yaml:"radius"` // 检索半径（米）
}

// UploadConfig 上传配置
type UploadConfig struct {
	Dir string `yaml:"dir"` // 特征照片保存目录
}

// LoadConfig 加载配置（混合方式：YAML文件 + 环境变量）
func LoadConfig() *Config {
	// 1. 首先从YAML文件加载默认配置
	config := loadFromYAML("config/config.yaml")

	// 2. 用环境变量覆盖配置（环境变量优先级更高）
	overrideWithEnvVars(config)

	return config
}

// loadFromYAML 从YAML文件加载配置
func loadFromYAML(filePath string) *Config {
	data, err := os.ReadFile(filePath)
	if err != nil {
		// 如果文件不存在，返回默认配置
		return getDefaultConfig()
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		// 如果解析失败，返回默认配置
		return getDefaultConfig()
	}

	return &config
}

// overrideWithEnvVars 用环境变量覆盖配置
func overrideWithEnvVars(config *Config) {
	// 服务器配置
	if port := getEnv("SERVER_PORT", ""); port != "" {
		config.Server.Port = port
	}
	if timeout := getEnvDuration("SERVER_READ_TIMEOUT", 0); timeout > 0 {
		config.Server.ReadTimeout = timeout
	}
	if timeout := getEnvDuration("SERVER_WRITE_TIMEOUT", 0); timeout > 0 {
		config.Server.WriteTimeout = timeout
	}
	if timeout := getEnvDuration("SERVER_IDLE_TIMEOUT", 0); timeout > 0 {
		config.Server.IdleTimeout = timeout
	}

	// MongoDB配置
	if uri := getEnv("MONGO_URI", ""); uri != "" {
		config.Mongo.URI = uri
	}
	if database := getEnv("MONGO_DATABASE", ""); database != "" {
		config.Mongo.Database = database
	}
	if timeout := getEnvDuration("MONGO_TIMEOUT", 0); timeout > 0 {
		config.Mongo.Timeout = timeout
	}

	// JWT配置
	if secret := getEnv("JWT_SECRET", ""); secret != "" {
		config.JWT.Secret = secret
	}
	if expireTime := getEnvDuration("JWT_EXPIRE_TIME", 0); expireTime > 0 {
		config.JWT.ExpireTime = expireTime
	}
	if issuer := getEnv("JWT_ISSUER", ""); issuer != "" {
		config.JWT.Issuer = issuer
	}

	// 日志配置
	if level := getEnv("LOG_LEVEL", ""); level != "" {
		config.Log.Level = level
	}
	if filename := getEnv("LOG_FILENAME", ""); filename != "" {
		config.Log.Filename = filename
	}
	if maxSize := getEnvInt("LOG_MAX_SIZE", 0); maxSize > 0 {
		config.Log.MaxSize = maxSize
	}
	if maxBackups := getEnvInt("LOG_MAX_BACKUPS", 0); maxBackups > 0 {
		config.Log.MaxBackups = maxBackups
	}
	if maxAge := getEnvInt("LOG_MAX_AGE", 0); maxAge > 0 {
		config.Log.MaxAge = maxAge
	}

	// Redis配置
	if host := getEnv("REDIS_HOST", ""); host != "" {
		config.Redis.Host = host
	}
	if port := getEnvInt("REDIS_PORT", 0); port > 0 {
		config.Redis.Port = port
	}
	if password := getEnv("REDIS_PASSWORD", ""); password != "" {
		config.Redis.Password = password
	}
	if db := getEnvInt("REDIS_DB", -1); db >= 0 {
		config.Redis.DB = db
	}

	// 推送配置
	if enabled := getEnv("PUSH_ENABLED", ""); enabled != "" {
		config.Push.Enabled = getEnvBool("PUSH_ENABLED", false)
	}
	if keyFile := getEnv("PUSH_KEY_FILE", ""); keyFile != "" {
		config.Push.KeyFile = keyFile
	}
	if keyID := getEnv("PUSH_KEY_ID", ""); keyID != "" {
		config.Push.KeyID = keyID
	}
	if teamID := getEnv("PUSH_TEAM_ID", ""); teamID != "" {
		config.Push.TeamID = teamID
	}
	if topic := getEnv("PUSH_TOPIC", ""); topic != "" {
		config.Push.Topic = topic
	}

	// 镜像配置
	if enabled := getEnv("MIRROR_ENABLED", ""); enabled != "" {
		config.Mirror.Enabled = getEnvBool("MIRROR_ENABLED", false)
	}
	if baseURL := getEnv("MIRROR_BASE_URL", ""); baseURL != "" {
		config.Mirror.BaseURL = baseURL
	}

	// 地图配置
	if host := getEnv("MAP_HOST", ""); host != "" {
		config.Map.Host = host
	}
	if ak := getEnv("MAP_AK", ""); ak != "" {
		config.Map.AK = ak
	}

	// 上传配置
	if dir := getEnv("UPLOAD_DIR", ""); dir != "" {
		config.Upload.Dir = dir
	}
}

// getDefaultConfig 获取默认配置
func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "pengpeng",
			Timeout:  10 * time.Second,
		},
		JWT: JWTConfig{
			Secret:     "your-secret-key",
			ExpireTime: 24 * time.Hour,
			Issuer:     "pengpeng",
		},
		Log: LogConfig{
			Level:      "info",
			Filename:   "logs/app.log",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
		},
		Push: PushConfig{
			Enabled: false,
			Sandbox: true,
			TTL:     60,
		},
		Mirror: MirrorConfig{
			Enabled: false,
			Timeout: 5 * time.Second,
		},
		Map: MapConfig{
			Host:   "api.map.baidu.com",
			Radius: 2000,
		},
		Upload: UploadConfig{
			Dir: "uploads/special",
		},
	}
}

// 辅助函数：获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// 辅助函数：获取整数环境变量
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// 辅助函数：获取布尔环境变量
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// 辅助函数：获取时间环境变量
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

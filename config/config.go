package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config 服务全局配置，全部来自环境变量
type Config struct {
	// HTTP服务端口
	ServerPort string

	// MySQL数据库配置
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Redis配置
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// 消息队列类型: rocketmq / redis / memory
	MQType string
	// RocketMQ NameServer地址
	RocketMQNameSrv string

	// JWT签名密钥
	JWTSecret string

	// 初始管理员账号（启动时自动创建）
	AdminUsername string
	AdminPassword string

	// Cloudinary图片上传配置
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// 运行环境: development / production
	Environment string
}

// Load 加载.env文件并读取配置
func Load() *Config {
	// .env不存在时静默忽略，直接使用进程环境变量
	if err := godotenv.Load(); err == nil {
		log.Println("已加载.env配置文件")
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8090"),

		DBUser:     getEnv("DB_USER", "voteuser"),
		DBPassword: getEnv("DB_PASSWORD", "votepassword"),
		DBHost:     getEnv("DB_HOST", "mysql"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBName:     getEnv("DB_NAME", "votingdb"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MQType:          getEnv("MQ_TYPE", "redis"),
		RocketMQNameSrv: getEnv("ROCKETMQ_NAMESRV_ADDR", "localhost:9876"),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		CloudinaryName:      getEnv("CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("API_KEY", ""),
		CloudinaryAPISecret: getEnv("API_SECRET", ""),

		Environment: getEnv("ENVIRONMENT", "development"),
	}
}

// getEnv 获取环境变量值或使用默认值
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整数环境变量值或使用默认值
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

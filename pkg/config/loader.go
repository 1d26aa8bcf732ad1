package config

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvInfo service names, yaml and log paths from .env
type EnvInfo struct {
	// image name
	ChatService       string
	AuthService       string
	AttachmentService string

	// service yaml path
	ChatServiceYAMLPath       string
	AuthServiceYAMLPath       string
	AttachmentServiceYAMLPath string

	// service log path
	ChatServiceLogPath       string
	AuthServiceLogPath       string
	AttachmentServiceLogPath string
}

// EnvConfig service settings from .env
var (
	EnvConfig = initEnv()
	envConfig EnvInfo
	once      sync.Once
	env       string
)

func initEnv() EnvInfo {
	once.Do(func() {
		path, err := GetPath(".env", 5)
		if err != nil {
			log.Printf("Warning: Could not get .env path: %v", err)
		}

		if err := godotenv.Load(path); err != nil {
			log.Printf("Warning: Could not load .env file: %v", err)
		}

		env = os.Getenv("ENV")

		envConfig = EnvInfo{
			ChatService:       getenvDefault("CHAT_SERVICE", "chat_service"),
			AuthService:       getenvDefault("AUTH_SERVICE", "auth_service"),
			AttachmentService: getenvDefault("ATTACHMENT_SERVICE", "attachment_service"),

			ChatServiceYAMLPath:       getenvDefault("CHAT_SERVICE_YAML", "./config"),
			AuthServiceYAMLPath:       getenvDefault("AUTH_SERVICE_YAML", "./config"),
			AttachmentServiceYAMLPath: getenvDefault("ATTACHMENT_SERVICE_YAML", "./config"),

			ChatServiceLogPath:       getenvDefault("CHAT_SERVICE_LOG", "./log/chat"),
			AuthServiceLogPath:       getenvDefault("AUTH_SERVICE_LOG", "./log/auth"),
			AttachmentServiceLogPath: getenvDefault("ATTACHMENT_SERVICE_LOG", "./log/attachment"),
		}
	})

	return envConfig
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// IsProduction check run env
func IsProduction() bool {
	return env == "production"
}

// IsLocal check run env
func IsLocal() bool {
	return env == "local"
}

// LoadConfig load <serviceName>.yaml from configPath, ${VAR} placeholders are expanded from the environment
func LoadConfig[T any](serviceName string, configPath string) T {
	cfg, err := ReadConfig[T](serviceName, configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}

// ReadConfig LoadConfig without exiting on failure
func ReadConfig[T any](serviceName string, configPath string) (T, error) {
	var cfg T

	v := viper.New()
	v.SetConfigName(serviceName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	rawConfig, err := os.ReadFile(v.ConfigFileUsed())
	if err != nil {
		return cfg, fmt.Errorf("read raw config file: %w", err)
	}

	// ${} placeholders -> env value
	expandedConfig := os.ExpandEnv(string(rawConfig))
	if err := v.ReadConfig(bytes.NewBufferString(expandedConfig)); err != nil {
		return cfg, fmt.Errorf("read expanded config: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// GetRedisSetting get redis sentinel setting from .env
func GetRedisSetting() (string, []string) {
	var (
		masterName    string
		sentinelAddrs []string
	)

	// REDIS_SENTINEL*_IP + REDIS_SENTINEL*_PORT
	for _, e := range os.Environ() {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]

		if strings.HasPrefix(key, "REDIS_SENTINEL") && strings.HasSuffix(key, "_IP") {
			portKey := strings.Replace(key, "_IP", "_PORT", 1)
			port := os.Getenv(portKey)
			if port != "" {
				sentinelAddrs = append(sentinelAddrs, fmt.Sprintf("%s:%s", value, port))
			}
		}
	}

	masterName = os.Getenv("REDIS_MASTER_NAME")
	if masterName == "" {
		masterName = "mymaster"
	}

	return masterName, sentinelAddrs
}

// GetPath use fileName loop maxCount find file path
func GetPath(fileName string, maxCount int) (string, error) {
	path := "./" + fileName

	for i := 0; i < maxCount; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = "../" + path
	}
	return "", errors.New(fileName + " can't find path")
}

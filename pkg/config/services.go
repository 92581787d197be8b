package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/tuanle2204/BookSwap-Group07/pkg/utils"
)

type Service struct {
	Host     string
	Port     string
	Protocol string
}

type ServicesConfig struct {
	LocalIP string
	API     Service
}

func LoadServicesConfig() *ServicesConfig {
	localIP := utils.GetLocalIP()

	return &ServicesConfig{
		LocalIP: localIP,
		API: Service{
			Host:     GetEnvOrDefault("API_HOST", localIP),
			Port:     GetEnvOrDefault("API_PORT", "8080"),
			Protocol: "http",
		},
	}
}

func (s *Service) URL() string {
	return fmt.Sprintf("%s://%s:%s", s.Protocol, s.Host, s.Port)
}

func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func GetEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func GetEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

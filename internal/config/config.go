package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"corsOrigins"`
	} `yaml:"server"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Auth struct {
		SessionTTLMinutes int    `yaml:"sessionTTLMinutes"`
		ResetTTLMinutes   int    `yaml:"resetTTLMinutes"`
		MaxLoginAttempts  int    `yaml:"maxLoginAttempts"`
		LockoutMinutes    int    `yaml:"lockoutMinutes"`
		AdminUsername     string `yaml:"adminUsername"`
		AdminPassword     string `yaml:"adminPassword"`
	} `yaml:"auth"`

	Upload struct {
		MaxBytes int64 `yaml:"maxBytes"`
	} `yaml:"upload"`

	Engine struct {
		Command  string   `yaml:"command"`
		DataDir  string   `yaml:"dataDir"`
		WorkDir  string   `yaml:"workDir"`
		PCIArgs  []string `yaml:"pciArgs"`
		APIKey   string   `yaml:"apiKey"`
		TimeoutS int      `yaml:"timeoutSeconds"`
	} `yaml:"engine"`
}

// Load baca file config.yaml
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Auth.SessionTTLMinutes <= 0 {
		c.Auth.SessionTTLMinutes = 60
	}
	if c.Auth.ResetTTLMinutes <= 0 {
		c.Auth.ResetTTLMinutes = 15
	}
	if c.Auth.MaxLoginAttempts <= 0 {
		c.Auth.MaxLoginAttempts = 5
	}
	if c.Auth.LockoutMinutes <= 0 {
		c.Auth.LockoutMinutes = 15
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = 50 << 20
	}
	if c.Engine.TimeoutS <= 0 {
		c.Engine.TimeoutS = 900
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionTTLMinutes) * time.Minute
}

func (c *Config) ResetTTL() time.Duration {
	return time.Duration(c.Auth.ResetTTLMinutes) * time.Minute
}

func (c *Config) LockoutWindow() time.Duration {
	return time.Duration(c.Auth.LockoutMinutes) * time.Minute
}

func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutS) * time.Second
}

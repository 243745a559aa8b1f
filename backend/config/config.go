package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Running struct {
		Port            int           `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	} `mapstructure:"running"`
	Auth struct {
		// 为空时不挂鉴权中间件（本地开发）
		Secret string `mapstructure:"secret"`
	} `mapstructure:"auth"`
	Websocket struct {
		MaxSessions int `mapstructure:"maxSessions"`
	} `mapstructure:"websocket"`
	Redis struct {
		Addrs       []string      `mapstructure:"addrs"`
		Password    string        `mapstructure:"password"`
		PresenceTTL time.Duration `mapstructure:"presenceTTL"`
	} `mapstructure:"redis"`
	Mysql struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"mysql"`
	Kafka struct {
		Brokers     []string      `mapstructure:"brokers"`
		Topic       string        `mapstructure:"topic"`
		QueueSize   int           `mapstructure:"queueSize"`
		Workers     int           `mapstructure:"workers"`
		MaxRetry    int           `mapstructure:"maxRetry"`
		BaseBackoff time.Duration `mapstructure:"baseBackoff"`
		MaxBackoff  time.Duration `mapstructure:"maxBackoff"`
		MaxInFlight int           `mapstructure:"maxInFlight"`
	} `mapstructure:"kafka"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("running.port", 8083)
	v.SetDefault("running.shutdownTimeout", 5*time.Second)
	v.SetDefault("auth.secret", "")
	v.SetDefault("websocket.maxSessions", 100)
	v.SetDefault("redis.addrs", []string{})
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.presenceTTL", 600*time.Second)
	v.SetDefault("mysql.dsn", "")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "editor-events")
	v.SetDefault("kafka.queueSize", 10_000)
	v.SetDefault("kafka.workers", 4)
	v.SetDefault("kafka.maxRetry", 3)
	v.SetDefault("kafka.baseBackoff", 50*time.Millisecond)
	v.SetDefault("kafka.maxBackoff", time.Second)
	v.SetDefault("kafka.maxInFlight", 100)
}

// Load 读取 editorConfig.yaml；找不到文件时只用默认值和环境变量（EDITOR_RUNNING_PORT 之类）
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("editorConfig")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		// 兼容从项目根目录或 backend 目录启动
		paths = []string{"./backend/config", "./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)
	v.SetEnvPrefix("EDITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

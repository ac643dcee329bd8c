// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Config 是所有服务共享的配置结构。
// 来源优先级: 环境变量 > Nacos 配置中心 > 本地 yaml 文件 > 默认值。
type Config struct {
	Infra struct {
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Mysql struct {
			Addr     string `yaml:"addr"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			Database string `yaml:"database"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers []string `yaml:"brokers"`
			Topics  struct {
				Redemptions     string `yaml:"redemptions"`
				ReconcileAlerts string `yaml:"reconcile_alerts"`
			} `yaml:"topics"`
		} `yaml:"kafka"`
		Zookeeper struct {
			Servers []string `yaml:"servers"`
		} `yaml:"zookeeper"`
	} `yaml:"infra"`

	Provisioning struct {
		BlobRoot string `yaml:"blob_root"` // 文件型 blob 存储的根目录
	} `yaml:"provisioning"`
}

var currentConfig atomic.Value // 保存 *Config 快照，热更新时整体替换

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Mysql.Addr = "localhost:3306"
	cfg.Infra.Mysql.User = "root"
	cfg.Infra.Mysql.Database = "bazaar"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.Topics.Redemptions = "coupon-redemptions"
	cfg.Infra.Kafka.Topics.ReconcileAlerts = "provisioning-reconcile-alerts"
	cfg.Infra.Zookeeper.Servers = []string{"localhost:2181"}
	cfg.Provisioning.BlobRoot = "/var/lib/bazaar/blobs"
	return cfg
}

// Init 加载配置并可选地挂接 Nacos 配置中心的监听。
// 必须在 StartService 之前调用。
func Init() {
	cfg := defaultConfig()

	path := getEnv("CONFIG_FILE", "configs/config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("FATAL: cannot parse config file %s: %v", path, err)
		}
		log.Printf("Config loaded from %s", path)
	} else {
		log.Printf("No config file at %s, using defaults (%v)", path, err)
	}

	applyEnvOverrides(cfg)
	currentConfig.Store(cfg)

	// Nacos 配置中心是可选的；只有显式配置了 DataId 才会启用。
	if dataID := os.Getenv("NACOS_CONFIG_DATA_ID"); dataID != "" {
		initNacosConfig(dataID)
	}
}

// GetCurrentConfig 返回当前配置快照。快照是不可变的，热更新时整体替换。
func GetCurrentConfig() *Config {
	if v := currentConfig.Load(); v != nil {
		return v.(*Config)
	}
	cfg := defaultConfig()
	currentConfig.Store(cfg)
	return cfg
}

// applyRemoteConfig 把 Nacos 下发的 yaml 合并进当前快照。
func applyRemoteConfig(content string) {
	base := *GetCurrentConfig()
	if err := yaml.Unmarshal([]byte(content), &base); err != nil {
		log.Printf("ERROR: invalid remote config ignored: %v", err)
		return
	}
	applyEnvOverrides(&base)
	currentConfig.Store(&base)
	log.Println("Config refreshed from Nacos.")
}

// applyEnvOverrides 按环境变量覆盖单个配置项，容器化部署不用改文件。
// 环境变量的优先级最高，Nacos 热更新之后也会重新套用。
func applyEnvOverrides(cfg *Config) {
	setIfEnv := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setIfEnv("JAEGER_ENDPOINT", &cfg.Infra.Jaeger.Endpoint)
	setIfEnv("MYSQL_ADDR", &cfg.Infra.Mysql.Addr)
	setIfEnv("MYSQL_USER", &cfg.Infra.Mysql.User)
	setIfEnv("MYSQL_PASSWORD", &cfg.Infra.Mysql.Password)
	setIfEnv("MYSQL_DATABASE", &cfg.Infra.Mysql.Database)
	setIfEnv("REDIS_ADDR", &cfg.Infra.Redis.Addr)
	setIfEnv("KAFKA_TOPIC_REDEMPTIONS", &cfg.Infra.Kafka.Topics.Redemptions)
	setIfEnv("KAFKA_TOPIC_RECONCILE_ALERTS", &cfg.Infra.Kafka.Topics.ReconcileAlerts)
	setIfEnv("BLOB_ROOT", &cfg.Provisioning.BlobRoot)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ZOOKEEPER_SERVERS"); v != "" {
		cfg.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
}

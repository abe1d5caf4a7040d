// internal/pkg/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是所有服务共享的配置结构，从 YAML 文件加载，个别关键项允许环境变量覆盖。
type Config struct {
	Service struct {
		Name string `yaml:"name"`
		Port int    `yaml:"port"`
	} `yaml:"service"`

	Infra struct {
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Kafka struct {
			Brokers          []string `yaml:"brokers"`
			SaleEventsTopic  string   `yaml:"saleEventsTopic"`
			DriftEventsTopic string   `yaml:"driftEventsTopic"`
		} `yaml:"kafka"`
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addrs string `yaml:"addrs"`
		} `yaml:"redis"`
		Nacos struct {
			Enabled     bool   `yaml:"enabled"`
			ServerAddrs string `yaml:"serverAddrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
		Zookeeper struct {
			Servers []string `yaml:"servers"`
		} `yaml:"zookeeper"`
	} `yaml:"infra"`

	Stock struct {
		// 库存侧与目录侧两个远端服务。Name 用于 Nacos 发现，Addr 是静态兜底地址。
		Inventory RemoteService `yaml:"inventory"`
		Catalog   RemoteService `yaml:"catalog"`
		// 单次远端调用的独立超时
		CallTimeout Duration `yaml:"callTimeout"`
	} `yaml:"stock"`

	Policy struct {
		// DegradedSale 是一个 CEL 表达式，决定降级读取是否允许参与销售。
		DegradedSale string `yaml:"degradedSale"`
	} `yaml:"policy"`

	Fallback struct {
		Inventory []SeedItem `yaml:"inventory"`
		Catalog   []SeedItem `yaml:"catalog"`
	} `yaml:"fallback"`

	Reconcile struct {
		ScanInterval Duration `yaml:"scanInterval"`
	} `yaml:"reconcile"`
}

// Duration 让 time.Duration 字段接受 "3s" 这样的 YAML 字面量。
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std 转回标准库类型。
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// RemoteService 描述一个可被发现或静态寻址的下游服务。
type RemoteService struct {
	Name string `yaml:"name"`
	Addr string `yaml:"addr"`
}

// SeedItem 是兜底响应器使用的固定样本数据条目。
// 它是注入的不可变配置值，不是进程级可变状态。
type SeedItem struct {
	ID          int64   `yaml:"id"`
	Name        string  `yaml:"name"`
	Category    string  `yaml:"category"`
	Price       float64 `yaml:"price"`
	Quantity    int     `yaml:"quantity"`
	Description string  `yaml:"description"`
	SKU         string  `yaml:"sku"`
	Active      bool    `yaml:"active"`
}

// Load 从 path 读取配置；path 为空时使用 CONFIG_PATH 环境变量，
// 文件不存在则返回纯默认配置，保证本地起服务零配置可用。
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = getEnv("CONFIG_PATH", "")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Service.Name = "billing-service"
	cfg.Service.Port = 8084
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.SaleEventsTopic = "sale-events"
	cfg.Infra.Kafka.DriftEventsTopic = "stock-drift-events"
	cfg.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/billing?charset=utf8mb4&parseTime=True&loc=Local"
	cfg.Infra.Redis.Addrs = "localhost:6379"
	cfg.Infra.Nacos.ServerAddrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	cfg.Infra.Zookeeper.Servers = []string{"localhost:2181"}
	cfg.Stock.Inventory = RemoteService{Name: "inventory-service", Addr: "localhost:8082"}
	cfg.Stock.Catalog = RemoteService{Name: "product-service", Addr: "localhost:8083"}
	cfg.Stock.CallTimeout = Duration(3 * time.Second)
	// 默认策略：任何一侧是降级数据都拒绝销售
	cfg.Policy.DegradedSale = "!inventory.degraded && !catalog.degraded"
	cfg.Reconcile.ScanInterval = Duration(30 * time.Second)
	cfg.Fallback.Inventory = DefaultInventorySeed()
	cfg.Fallback.Catalog = DefaultCatalogSeed()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := getEnv("JAEGER_ENDPOINT", ""); v != "" {
		c.Infra.Jaeger.Endpoint = v
	}
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		c.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getEnv("MYSQL_DSN", ""); v != "" {
		c.Infra.Mysql.DSN = v
	}
	if v := getEnv("REDIS_ADDRS", ""); v != "" {
		c.Infra.Redis.Addrs = v
	}
	if v := getEnv("NACOS_SERVER_ADDRS", ""); v != "" {
		c.Infra.Nacos.ServerAddrs = v
	}
	if v := getEnv("INVENTORY_SERVICE_ADDR", ""); v != "" {
		c.Stock.Inventory.Addr = v
	}
	if v := getEnv("PRODUCT_SERVICE_ADDR", ""); v != "" {
		c.Stock.Catalog.Addr = v
	}
	if v := getEnv("ZOOKEEPER_SERVERS", ""); v != "" {
		c.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
}

// DefaultInventorySeed 返回库存侧兜底样本数据。
func DefaultInventorySeed() []SeedItem {
	return []SeedItem{
		{ID: 1, Name: "Laptop", Category: "Electronics", Price: 50000, Quantity: 10},
		{ID: 2, Name: "Smartphone", Category: "Electronics", Price: 25000, Quantity: 15},
		{ID: 3, Name: "Headphones", Category: "Electronics", Price: 2500, Quantity: 25},
		{ID: 4, Name: "Wireless Mouse", Category: "Electronics", Price: 1500, Quantity: 30},
		{ID: 5, Name: "USB Cable", Category: "Electronics", Price: 500, Quantity: 50},
	}
}

// DefaultCatalogSeed 返回目录侧兜底样本数据，带目录侧特有的描述字段。
func DefaultCatalogSeed() []SeedItem {
	return []SeedItem{
		{ID: 1, Name: "Gaming Laptop", Category: "Electronics", Price: 75000, Quantity: 5, Description: "High-performance gaming laptop", SKU: "ELEGAL001", Active: true},
		{ID: 2, Name: "Wireless Earbuds", Category: "Electronics", Price: 8000, Quantity: 20, Description: "Premium wireless earbuds", SKU: "ELEWIR002", Active: true},
		{ID: 3, Name: "Cotton T-Shirt", Category: "Clothing", Price: 800, Quantity: 50, Description: "Comfortable cotton t-shirt", SKU: "CLCOTT003", Active: true},
		{ID: 4, Name: "Programming Book", Category: "Books", Price: 1200, Quantity: 15, Description: "Learn programming", SKU: "BOPRO004", Active: true},
		{ID: 5, Name: "Plant Pot", Category: "Home & Garden", Price: 300, Quantity: 8, Description: "Ceramic plant pot", SKU: "HOPLA005", Active: true},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

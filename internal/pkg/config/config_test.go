// internal/pkg/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Port != 8084 {
		t.Fatalf("default port = %d, want 8084", cfg.Service.Port)
	}
	if cfg.Stock.CallTimeout.Std() != 3*time.Second {
		t.Fatalf("default call timeout = %v, want 3s", cfg.Stock.CallTimeout.Std())
	}
	if cfg.Policy.DegradedSale == "" {
		t.Fatal("default degraded-sale policy must not be empty")
	}
	if len(cfg.Fallback.Inventory) != 5 || len(cfg.Fallback.Catalog) != 5 {
		t.Fatal("default fallback seeds must be populated for both sides")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
service:
  name: billing-service
  port: 9090
stock:
  callTimeout: 5s
  inventory:
    name: inventory-service
    addr: inv.internal:8082
policy:
  degradedSale: "true"
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Port != 9090 {
		t.Fatalf("port = %d, want 9090", cfg.Service.Port)
	}
	if cfg.Stock.CallTimeout.Std() != 5*time.Second {
		t.Fatalf("call timeout = %v, want 5s", cfg.Stock.CallTimeout.Std())
	}
	if cfg.Stock.Inventory.Addr != "inv.internal:8082" {
		t.Fatalf("inventory addr = %q", cfg.Stock.Inventory.Addr)
	}
	if cfg.Policy.DegradedSale != "true" {
		t.Fatalf("policy = %q, want \"true\"", cfg.Policy.DegradedSale)
	}
	// 文件里没写的字段保持默认
	if cfg.Infra.Kafka.SaleEventsTopic != "sale-events" {
		t.Fatalf("sale events topic = %q, want default", cfg.Infra.Kafka.SaleEventsTopic)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("INVENTORY_SERVICE_ADDR", "10.0.0.9:8082")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Stock.Inventory.Addr != "10.0.0.9:8082" {
		t.Fatalf("inventory addr = %q, want env override", cfg.Stock.Inventory.Addr)
	}
	if len(cfg.Infra.Kafka.Brokers) != 2 || cfg.Infra.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v, want two from env", cfg.Infra.Kafka.Brokers)
	}
}

func TestDefaultSeeds_SidesDiverge(t *testing.T) {
	// 两侧样本数据刻意不一致：兜底数据参与销售会被一致性检查拦下
	inv := DefaultInventorySeed()
	cat := DefaultCatalogSeed()
	if inv[0].Name == cat[0].Name {
		t.Fatal("seed data for the two sides is expected to diverge")
	}
}

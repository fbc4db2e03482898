package config

import (
	"os"
	"testing"
)

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_HOST", "db.internal")
	os.Setenv("DB_PORT", "6543")
	os.Setenv("DB_NAME", "wearables")
	os.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg := DatabaseConfig{Host: "localhost", Port: 5432, MaxConns: 10, SSLMode: "disable"}
	cfg.LoadFromEnv("DB")

	if cfg.Host != "db.internal" {
		t.Errorf("Expected host 'db.internal', got '%s'", cfg.Host)
	}
	if cfg.Port != 6543 {
		t.Errorf("Expected port 6543, got %d", cfg.Port)
	}
	if cfg.MaxConns != 10 {
		t.Errorf("Expected invalid max conns to keep default 10, got %d", cfg.MaxConns)
	}
	want := "host=db.internal port=6543 user= password= dbname=wearables sslmode=disable"
	if got := cfg.GetDSN(); got != want {
		t.Errorf("Expected DSN %q, got %q", want, got)
	}
}

func TestMQTTConfig_LoadFromEnv(t *testing.T) {
	os.Clearenv()
	os.Setenv("MQTT_BROKER", "tcp://broker:1883")
	os.Setenv("MQTT_QOS", "3")

	cfg := MQTTConfig{QoS: 1}
	cfg.LoadFromEnv("MQTT")

	if cfg.Broker != "tcp://broker:1883" {
		t.Errorf("Expected broker 'tcp://broker:1883', got '%s'", cfg.Broker)
	}
	if cfg.QoS != 1 {
		t.Errorf("Expected out-of-range QoS to be ignored, got %d", cfg.QoS)
	}
}

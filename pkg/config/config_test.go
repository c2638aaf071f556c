package config

import (
	"strings"
	"testing"
	"time"
)

const minimal = `
environment: test
auth:
  jwt_secret: s3cret
openrouter:
  models: ["a/model:free", "b/model:free"]
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.CoinGecko.PriceCacheTTL != 60*time.Second {
		t.Fatalf("expected 60s price ttl, got %v", c.CoinGecko.PriceCacheTTL)
	}
	if c.Store.Backend != "memory" || c.Store.SnapshotTTL != 72*time.Hour {
		t.Fatalf("unexpected store defaults: %+v", c.Store)
	}
	if c.Dashboard.NewsLimit != 5 || c.Dashboard.InsightAssets != 3 {
		t.Fatalf("unexpected dashboard defaults: %+v", c.Dashboard)
	}
	if c.Upstream.Timeout != 8*time.Second {
		t.Fatalf("expected 8s upstream timeout, got %v", c.Upstream.Timeout)
	}
}

func TestParseValidation(t *testing.T) {
	cases := map[string]string{
		"backend": minimal + "store:\n  backend: postgres\n",
		"secret":  strings.Replace(minimal, "s3cret", "\"\"", 1),
		"kafka":   minimal + "kafka:\n  enabled: true\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	c, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	env := map[string]string{
		"STORE_BACKEND":     "sqlite",
		"KAFKA_BROKERS":     "k1:9092, k2:9092",
		"OPENROUTER_MODELS": "x/y",
		"CRYPTOPANIC_TOKEN": "tok",
	}
	c.applyEnv(func(k string) string { return env[k] })

	if c.Store.Backend != "sqlite" {
		t.Fatalf("backend not overridden")
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", c.Kafka.Brokers)
	}
	if len(c.OpenRouter.Models) != 1 || c.CryptoPanic.Token != "tok" {
		t.Fatalf("unexpected overrides %+v %+v", c.OpenRouter, c.CryptoPanic)
	}
}

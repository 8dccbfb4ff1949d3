package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"flex_reviews/internal/domain"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFrom_Defaults(t *testing.T) {
	c, err := LoadFrom(envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	if c.HTTPAddr != ":3001" || c.StoreDriver != "mongo" || c.RedisAddr != "" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.RateLimitWindow != 15*time.Minute || c.RateLimitMax != 100 {
		t.Fatalf("unexpected rate limit defaults: %v %d", c.RateLimitWindow, c.RateLimitMax)
	}
	if c.UnknownCategory != domain.CategoryCleanliness || !c.SynthesizeCategories || !c.FallbackFixtures {
		t.Fatalf("unexpected normalizer defaults: %+v", c)
	}
	if c.IsProduction() {
		t.Fatal("default env must not be production")
	}
}

func TestLoadFrom_FileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := "HTTP_ADDR: \":9000\"\nSYNC_WORKERS: 12\nCORS_ORIGINS:\n  - http://a.test\n  - http://b.test\nstore_driver: memory\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFrom(envMap(map[string]string{
		"CONFIG_FILE":             path,
		"HTTP_ADDR":               ":7000",
		"UNKNOWN_CATEGORY_POLICY": "unclassified",
		"APP_ENV":                 "production",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if c.HTTPAddr != ":7000" {
		t.Fatalf("env must win over file, got %q", c.HTTPAddr)
	}
	if c.SyncWorkers != 12 || c.StoreDriver != "memory" {
		t.Fatalf("file values not applied: %+v", c)
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", c.CORSOrigins)
	}
	if c.UnknownCategory != domain.CategoryUnclassified || !c.IsProduction() {
		t.Fatalf("unexpected: %+v", c)
	}
}

func TestLoadFrom_RejectsUnknownDriver(t *testing.T) {
	if _, err := LoadFrom(envMap(map[string]string{"STORE_DRIVER": "sqlite"})); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

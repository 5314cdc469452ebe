package store

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestSaveConfig_ConcurrentWriters_DoesNotCorruptConfig(t *testing.T) {
	t.Parallel()

	s := Store{Dir: t.TempDir()}
	if err := s.SaveConfig(&Config{Server: "http://seed", Catalogs: []string{"Heritage"}}); err != nil {
		t.Fatalf("SaveConfig(seed): %v", err)
	}

	const n = 32
	errCh := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg, err := s.LoadConfig()
			if err != nil {
				errCh <- err
				return
			}
			cfg.Catalogs = append(cfg.Catalogs, fmt.Sprintf("Catalog %d", i))
			cfg.MaxBytes = int64(i + 1)
			if err := s.SaveConfig(cfg); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent SaveConfig: %v", err)
	}
	if t.Failed() {
		return
	}

	raw, err := os.ReadFile(s.ConfigPath())
	if err != nil {
		t.Fatalf("read config.yaml: %v", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("config.yaml corrupted/unparseable: %v\nraw:\n%s", err, raw)
	}
	if cfg.Server != "http://seed" || len(cfg.Catalogs) < 2 {
		t.Fatalf("unexpected config after writers: %+v", cfg)
	}

	ents, err := os.ReadDir(s.Dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range ents {
		if name := e.Name(); strings.HasPrefix(name, "config.yaml.") && strings.HasSuffix(name, ".tmp") {
			t.Fatalf("leftover temp file: %s", name)
		}
	}
}

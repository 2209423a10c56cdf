package lib

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBadConfigs(t *testing.T) {
	finfos, err := os.ReadDir("config/testdata/bad")
	if err != nil {
		t.Fatal(err)
	}

	for _, st := range finfos {
		t.Run(st.Name(), func(t *testing.T) {
			if _, err := LoadConfigOrDefault(filepath.Join("config", "testdata", "bad", st.Name())); err == nil {
				t.Fatal("config loaded without error")
			} else {
				t.Log(err)
			}
		})
	}
}

func TestGoodConfigs(t *testing.T) {
	finfos, err := os.ReadDir("config/testdata/good")
	if err != nil {
		t.Fatal(err)
	}

	for _, st := range finfos {
		t.Run(st.Name(), func(t *testing.T) {
			if _, err := LoadConfigOrDefault(filepath.Join("config", "testdata", "good", st.Name())); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	c, err := LoadConfigOrDefault("")
	if err != nil {
		t.Fatal(err)
	}

	if c.Store.Backend != "memory" {
		t.Errorf("wanted the memory backend by default, got %q", c.Store.Backend)
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("wanted an error for a missing file")
	}
}

package cli

import (
	"encoding/json"
	"testing"

	"github.com/spf13/viper"

	"github.com/ppiankov/ontograph/internal/model"
)

func TestTermFile_Row(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"array kept verbatim", `{"id":1,"term":"던전","related_terms":[{"target":"보상","type":"produces"}]}`, `[{"target":"보상","type":"produces"}]`},
		{"string unwrapped", `{"id":2,"term":"보상","related_terms":"[{'target': '골드'}]"}`, `[{'target': '골드'}]`},
		{"missing", `{"id":3,"term":"골드"}`, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tf termFile
			if err := json.Unmarshal([]byte(tt.in), &tf); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			row := tf.row()
			if row.RawRelations != tt.want {
				t.Errorf("RawRelations = %q, want %q", row.RawRelations, tt.want)
			}
			if row.Term.ID != tf.ID || row.Term.Text != tf.Term {
				t.Errorf("term fields not copied: %+v", row.Term)
			}
		})
	}
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	if err := setDefaults(model.DefaultConfig()); err != nil {
		t.Fatalf("setDefaults: %v", err)
	}
	viper.SetEnvPrefix("ONTOGRAPH")
	viper.SetEnvKeyReplacer(envReplacer)
	viper.AutomaticEnv()

	t.Setenv("ONTOGRAPH_STORE_DSN", "/tmp/graph.db")
	t.Setenv("ONTOGRAPH_BUILD_WORKERS", "6")
	t.Setenv("ONTOGRAPH_GRAPH_QUERY_TIMEOUT", "3s")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Store.DSN != "/tmp/graph.db" {
		t.Errorf("Store.DSN = %q, want env override", cfg.Store.DSN)
	}
	if cfg.Build.Workers != 6 {
		t.Errorf("Build.Workers = %d, want 6", cfg.Build.Workers)
	}
	if cfg.Graph.QueryTimeout.String() != "3s" {
		t.Errorf("Graph.QueryTimeout = %v, want 3s", cfg.Graph.QueryTimeout)
	}
	if cfg.Build.ConfidenceFloor != 0.5 {
		t.Errorf("Build.ConfidenceFloor = %v, want default 0.5", cfg.Build.ConfidenceFloor)
	}
	if len(cfg.Specificity.GenericNouns) == 0 {
		t.Error("expected default generic nouns to survive decoding")
	}
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	if err := setDefaults(model.DefaultConfig()); err != nil {
		t.Fatalf("setDefaults: %v", err)
	}
	viper.Set("store.driver", "mysql")

	if _, err := loadConfig(); err == nil {
		t.Error("expected validation error for unknown driver")
	}
}

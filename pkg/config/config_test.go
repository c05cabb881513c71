package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
	"github.com/matzehuels/vizframe/pkg/source"
	"github.com/matzehuels/vizframe/pkg/transform"
)

const session = `
[view]
reference_frame = "world"
show_axes = true
refresh_interval = "20ms"

[[static]]
source = "laser"
target = "body"
translation = [0.2, 0, 0.1]

[[static]]
source = "body"
target = "world"
translation = [1, 2, 3]
rotation = [0, 0, 0, 1]

[[port]]
task = "laser_driver"
port = "scans"
frame = "laser"

[[producer]]
task = "odometry"
port = "pose_samples"
from = "body"
to = "odom"

[[plugin]]
name = "scans"
port = "laser_driver.scans"

[[plugin]]
name = "path"
data_frame = "odom"

[store]
url = "file:///tmp/run.jsonl"

[server]
addr = "127.0.0.1:9000"
`

func writeSession(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vizframe.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeSession(t, session))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	if cfg.View.ReferenceFrame != "world" || !cfg.View.ShowGrid || !cfg.View.ShowAxes {
		t.Errorf("view = %+v", cfg.View)
	}
	if cfg.View.RefreshInterval != 20*time.Millisecond {
		t.Errorf("refresh interval = %v", cfg.View.RefreshInterval)
	}
	if cfg.View.MaxSamples != transform.DefaultMaxSamples {
		t.Errorf("max samples = %d", cfg.View.MaxSamples)
	}
	if len(cfg.Static) != 2 || len(cfg.Ports) != 1 || len(cfg.Producers) != 1 || len(cfg.Plugins) != 2 {
		t.Fatalf("sections = %+v", cfg)
	}
	if cfg.Redis.Channel != source.DefaultChannel {
		t.Errorf("redis channel = %q", cfg.Redis.Channel)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("server addr = %q", cfg.Server.Addr)
	}

	tc := cfg.Transformer()
	if len(tc.Static) != 2 || tc.Static[0].Kind != transform.KindStatic {
		t.Fatalf("transformer static = %+v", tc.Static)
	}
	if !tc.Static[0].Pose.Valid() {
		t.Error("omitted rotation is not identity")
	}
	// 180 degrees about z.
	got := tc.Static[1].Pose.Apply(mgl64.Vec3{1, 0, 0})
	if !got.ApproxEqualThreshold(mgl64.Vec3{0, 2, 3}, 1e-9) {
		t.Errorf("rotated static pose maps (1,0,0) to %v", got)
	}
	if tc.Producers[0].Key() != "odometry.pose_samples" {
		t.Errorf("producer = %+v", tc.Producers[0])
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") = %v", err)
	}
	if cfg.Server.Addr != DefaultServerAddr || cfg.View.RefreshInterval != DefaultRefreshInterval {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VIZFRAME_REFERENCE_FRAME", "odom")
	t.Setenv("VIZFRAME_SHOW_GRID", "false")
	t.Setenv("VIZFRAME_STORE_URL", "null:")
	t.Setenv("VIZFRAME_REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("VIZFRAME_SERVER_ADDR", ":9999")
	t.Setenv("VIZFRAME_REFRESH_INTERVAL", "1s")

	cfg, err := Load(writeSession(t, session))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.View.ReferenceFrame != "odom" || cfg.View.ShowGrid {
		t.Errorf("view = %+v", cfg.View)
	}
	if cfg.Store.URL != "null:" || cfg.Redis.URL != "redis://localhost:6379/1" || cfg.Server.Addr != ":9999" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.View.RefreshInterval != time.Second {
		t.Errorf("refresh interval = %v", cfg.View.RefreshInterval)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `[view`},
		{"unknown key", "[view]\nzoom = 3\n"},
		{"bad reference", "[view]\nreference_frame = \" world\"\n"},
		{"bad interval", "[view]\nrefresh_interval = \"-1s\"\n"},
		{"static without target", "[[static]]\nsource = \"a\"\n"},
		{"unnamed plugin", "[[plugin]]\ndata_frame = \"a\"\n"},
		{"duplicate plugin", "[[plugin]]\nname = \"a\"\n[[plugin]]\nname = \"a\"\n"},
		{"store scheme", "[store]\nurl = \"ftp://host/x\"\n"},
		{"redis scheme", "[redis]\nurl = \"http://localhost\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSession(t, tt.content))
			if !verrors.Is(err, verrors.ErrCodeInvalidConfig) {
				t.Errorf("Load() = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load(missing) = nil")
	}
}

package store

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	verrors "github.com/matzehuels/vizframe/pkg/errors"
	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/transform"
)

func testSamples() []Sample {
	return []Sample{
		{Source: "laser", Target: "body", Kind: transform.KindStatic, Pose: pose.FromTranslation(0.5, 0, 0)},
		{Source: "body", Target: "world", Kind: transform.KindDynamic, Time: time.Unix(20, 0).UTC(), Pose: pose.FromTranslation(2, 0, 0)},
		{Source: "body", Target: "world", Kind: transform.KindDynamic, Time: time.Unix(10, 0).UTC(), Pose: pose.FromTranslation(1, 0, 0)},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs", "a.jsonl")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("Load() on missing file = %v, %v", got, err)
	}

	samples := testSamples()
	if err := s.Append(ctx, samples[0]); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, samples[1:]...); err != nil {
		t.Fatal(err)
	}

	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("Load() = %d samples, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i].Source != samples[i].Source || got[i].Kind != samples[i].Kind ||
			!got[i].Time.Equal(samples[i].Time) || !got[i].Pose.ApproxEqual(samples[i].Pose, 1e-12) {
			t.Errorf("sample %d = %+v, want %+v", i, got[i], samples[i])
		}
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, samples[0]); !errors.Is(err, ErrClosed) {
		t.Errorf("Append after Close = %v, want ErrClosed", err)
	}
}

func TestFileStore_CorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("{\"source\":\"a\"}\nnot json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, _ := NewFileStore(path)
	if _, err := s.Load(context.Background()); err == nil {
		t.Error("Load() should fail on a corrupt line")
	}
}

func TestNullStore(t *testing.T) {
	s := NewNullStore()
	ctx := context.Background()
	if err := s.Append(ctx, testSamples()...); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Errorf("Load() = %v, %v, want empty", got, err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, "file://"+filepath.Join(dir, "rec.jsonl"))
	if err != nil {
		t.Fatalf("Open(file) = %v", err)
	}
	if fs, ok := s.(*FileStore); !ok || fs.Path() != filepath.Join(dir, "rec.jsonl") {
		t.Errorf("Open(file) = %#v", s)
	}

	if s, err := Open(ctx, "null:"); err != nil {
		t.Errorf("Open(null:) = %v", err)
	} else if _, ok := s.(*NullStore); !ok {
		t.Errorf("Open(null:) = %T", s)
	}

	tests := []struct {
		url  string
		code verrors.Code
	}{
		{"", verrors.ErrCodeInvalidURL},
		{"no-scheme", verrors.ErrCodeInvalidURL},
		{"ftp://host/rec", verrors.ErrCodeUnsupported},
		{"file://", verrors.ErrCodeInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := Open(ctx, tt.url)
			if !verrors.Is(err, tt.code) {
				t.Errorf("Open(%q) = %v, want %s", tt.url, err, tt.code)
			}
		})
	}
	if _, err := Open(ctx, "ftp://host/rec"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("Open(ftp) = %v, want ErrUnsupportedScheme", err)
	}
}

func TestSample_Validate(t *testing.T) {
	tests := []struct {
		name string
		s    Sample
		code verrors.Code
	}{
		{"valid static", Sample{Source: "a", Target: "b", Pose: pose.Identity()}, ""},
		{"empty source", Sample{Target: "b", Pose: pose.Identity()}, verrors.ErrCodeInvalidFrame},
		{"nan", Sample{Source: "a", Target: "b", Pose: pose.FromTranslation(math.NaN(), 0, 0)}, verrors.ErrCodeInvalidPose},
		{"untimed dynamic", Sample{Source: "a", Target: "b", Kind: transform.KindDynamic, Pose: pose.Identity()}, verrors.ErrCodeInvalidSample},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.code == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !verrors.Is(err, tt.code) {
				t.Errorf("Validate() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestReplay(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(filepath.Join(t.TempDir(), "rec.jsonl"))
	samples := append(testSamples(),
		Sample{Source: "gps", Target: "world", Kind: transform.KindDynamic, Time: time.Unix(30, 0).UTC(), Pose: pose.Identity()},
		Sample{Source: "", Target: "world", Kind: transform.KindStatic, Pose: pose.Identity()},
	)
	if err := s.Append(ctx, samples...); err != nil {
		t.Fatal(err)
	}

	g := transform.New()
	res, err := Replay(ctx, s, g, ReplayOptions{Until: time.Unix(25, 0)})
	if !errors.Is(err, transform.ErrInvalidFrame) {
		t.Errorf("Replay() error = %v, want the rejected sample", err)
	}
	if res.Pushed != 3 || res.Rejected != 1 || res.Skipped != 1 {
		t.Errorf("Replay() = %+v, want 3 pushed, 1 rejected, 1 skipped", res)
	}

	for g.Step() {
	}
	p, ok := g.Resolve("laser", "world", time.Time{})
	if !ok || !p.Translation.ApproxEqual(mgl64.Vec3{2.5, 0, 0}) {
		t.Errorf("Resolve(laser, world) = %v, %v", p, ok)
	}
	p, _ = g.Resolve("laser", "world", time.Unix(15, 0))
	if !p.Translation.ApproxEqual(mgl64.Vec3{1.5, 0, 0}) {
		t.Errorf("Resolve(laser, world, 15s) = %v", p)
	}
}

func TestReplay_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, _ := NewFileStore(filepath.Join(t.TempDir(), "rec.jsonl"))
	_ = s.Append(context.Background(), testSamples()...)

	if _, err := Replay(ctx, s, transform.New(), ReplayOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Replay() = %v, want context.Canceled", err)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	retryDelay = time.Millisecond
	defer func() { retryDelay = 200 * time.Millisecond }()
	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("flaky"))
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("RetryWithBackoff = %v after %d calls, want success after 3", err, calls)
	}

	calls = 0
	final := errors.New("final")
	if err := RetryWithBackoff(ctx, func() error { calls++; return final }); err != final || calls != 1 {
		t.Errorf("non-retryable: %v after %d calls", err, calls)
	}

	calls = 0
	flaky := errors.New("down")
	err = RetryWithBackoff(ctx, func() error { calls++; return Retryable(flaky) })
	if err != flaky || calls != 3 {
		t.Errorf("exhausted: %v after %d calls, want unwrapped error after 3", err, calls)
	}
	if Retryable(nil) != nil || IsRetryable(final) {
		t.Error("Retryable/IsRetryable mismatch")
	}
}

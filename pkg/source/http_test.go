package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/vizframe/pkg/plugin"
	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/store"
	"github.com/matzehuels/vizframe/pkg/view"
)

func newTestServer(t *testing.T, opts ...HandlerOption) (*view.View, *httptest.Server) {
	t.Helper()
	logger := log.New(io.Discard)
	v := view.New(view.WithLogger(logger))
	srv := httptest.NewServer(NewHandler(v, append([]HandlerOption{WithHandlerLogger(logger)}, opts...)...))
	t.Cleanup(srv.Close)
	return v, srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

const identity = `{"translation":[0,0,0],"rotation":{"w":1,"x":0,"y":0,"z":0}}`

func TestHandler_PushAndList(t *testing.T) {
	v, srv := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/transforms/static",
		`{"source":"laser","target":"body","pose":{"translation":[0.5,0,0],"rotation":{"w":1,"x":0,"y":0,"z":0}}}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST static = %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, http.MethodPost, srv.URL+"/transforms/dynamic",
		`[{"source":"body","target":"world","time":"2024-01-01T00:00:00Z","pose":`+identity+`},
		  {"source":"body","target":"world","time":"2024-01-01T00:00:01Z","pose":`+identity+`}]`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST dynamic = %d %s", resp.StatusCode, body)
	}
	var pr pushResponse
	if err := json.Unmarshal(body, &pr); err != nil || pr.Accepted != 2 {
		t.Fatalf("push response = %s (%v)", body, err)
	}

	if err := v.Process(time.Now()); err != nil {
		t.Fatalf("Process() = %v", err)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/frames", "")
	var frames struct {
		Frames []string `json:"frames"`
	}
	if err := json.Unmarshal(body, &frames); err != nil {
		t.Fatal(err)
	}
	if strings.Join(frames.Frames, ",") != "body,laser,world" {
		t.Errorf("frames = %v", frames.Frames)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/edges", "")
	var edges []struct {
		Source  string `json:"source"`
		Kind    string `json:"kind"`
		Samples int    `json:"samples"`
	}
	if err := json.Unmarshal(body, &edges); err != nil {
		t.Fatal(err)
	}
	if len(edges) != 2 {
		t.Fatalf("edges = %s", body)
	}
	for _, e := range edges {
		if e.Source == "body" && (e.Kind != "dynamic" || e.Samples != 2) {
			t.Errorf("dynamic edge = %+v", e)
		}
	}
}

func TestHandler_PushRejected(t *testing.T) {
	_, srv := newTestServer(t)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"malformed", "/transforms/static", `{`, http.StatusBadRequest},
		{"empty frame", "/transforms/static", `{"source":"","target":"b","pose":` + identity + `}`, http.StatusBadRequest},
		{"missing time", "/transforms/dynamic", `{"source":"a","target":"b","pose":` + identity + `}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestHandler_Resolve(t *testing.T) {
	v, srv := newTestServer(t)
	_ = v.PushStatic("laser", "body", pose.FromTranslation(0.5, 0, 0))
	_ = v.PushStatic("body", "world", pose.FromTranslation(10, 0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- v.Run(ctx, time.Millisecond) }()
	defer func() {
		cancel()
		<-done
	}()

	resp, body := do(t, http.MethodGet, srv.URL+"/resolve?source=laser&target=world", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resolve = %d %s", resp.StatusCode, body)
	}
	var got struct {
		Pose pose.Pose `json:"pose"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Pose.Translation.ApproxEqual(mgl64.Vec3{10.5, 0, 0}) {
		t.Errorf("pose = %v", got.Pose)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/resolve?source=laser&target=moon", "")
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(string(body), "NOT_FOUND") {
		t.Errorf("unresolvable = %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/resolve?source=laser", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing target = %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodGet, srv.URL+"/resolve?source=laser&target=world&time=yesterday", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad time = %d", resp.StatusCode)
	}
}

func TestHandler_ResolveTimeout(t *testing.T) {
	_, srv := newTestServer(t, WithQueryTimeout(10*time.Millisecond))

	resp, body := do(t, http.MethodGet, srv.URL+"/resolve?source=a&target=b", "")
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("resolve without loop = %d %s", resp.StatusCode, body)
	}
}

func TestHandler_Reference(t *testing.T) {
	v, srv := newTestServer(t)

	resp, body := do(t, http.MethodPut, srv.URL+"/reference", `{"frame":"world"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("PUT reference = %d %s", resp.StatusCode, body)
	}
	if err := v.Process(time.Now()); err != nil {
		t.Fatal(err)
	}
	if v.ReferenceFrame() != "world" {
		t.Errorf("ReferenceFrame() = %q", v.ReferenceFrame())
	}

	resp, _ = do(t, http.MethodPut, srv.URL+"/reference", `{"frame":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty frame = %d", resp.StatusCode)
	}
}

func TestHandler_PluginsAndHealth(t *testing.T) {
	v, srv := newTestServer(t)

	_, body := do(t, http.MethodGet, srv.URL+"/plugins", "")
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("plugins before Process = %s", body)
	}

	if err := v.Attach(plugin.NewBase("marker"), nil); err != nil {
		t.Fatal(err)
	}
	_ = v.Process(time.Now())
	_, body = do(t, http.MethodGet, srv.URL+"/plugins", "")
	if !strings.Contains(string(body), `"name":"marker"`) {
		t.Errorf("plugins = %s", body)
	}

	resp, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", resp.StatusCode, body)
	}
}

type memStore struct {
	store.NullStore
	samples []store.Sample
}

func (m *memStore) Append(_ context.Context, s ...store.Sample) error {
	m.samples = append(m.samples, s...)
	return nil
}

func TestHandler_Recorder(t *testing.T) {
	rec := &memStore{}
	_, srv := newTestServer(t, WithRecorder(rec))

	do(t, http.MethodPost, srv.URL+"/transforms/static", `[
		{"source":"a","target":"b","pose":`+identity+`},
		{"source":"","target":"b","pose":`+identity+`}]`)
	if len(rec.samples) != 1 || rec.samples[0].Source != "a" {
		t.Errorf("recorded = %+v", rec.samples)
	}
}

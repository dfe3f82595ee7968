package preview

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/fbind/internal/errors"
)

const page = `<!DOCTYPE html>
<html><head><title>counter</title></head>
<body>
<div id="app">
  <p>{{count}}</p>
  <button @click="count = count + 1">+</button>
  <span f-text="name"></span>
</div>
</body></html>`

var idPattern = regexp.MustCompile(`<button data-fbind-id="(\d+)"`)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func newServer(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	tpl := filepath.Join(dir, "page.html")
	data := filepath.Join(dir, "scope.json")
	writeFile(t, tpl, page)
	writeFile(t, data, `{"count": 1, "name": "Ada"}`)

	cfg.Template = tpl
	cfg.Scope = data
	if cfg.Selector == "" {
		cfg.Selector = "#app"
	}
	s := New(cfg, WithLogger(quietLogger()))
	t.Cleanup(s.Close)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return s, tpl
}

func buttonID(t *testing.T, markup string) int {
	t.Helper()
	m := idPattern.FindStringSubmatch(markup)
	if m == nil {
		t.Fatalf("no annotated button in %q", markup)
	}
	id, _ := strconv.Atoi(m[1])
	return id
}

func snapshot(t *testing.T, s *Server) string {
	t.Helper()
	out, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	return out
}

func TestLoadAndApply(t *testing.T) {
	s, _ := newServer(t, Config{})

	out := snapshot(t, s)
	if !strings.Contains(out, "<p>1</p>") || !strings.Contains(out, "<span>Ada</span>") {
		t.Fatalf("initial render = %q", out)
	}

	if err := s.Apply(ClientMessage{Type: TypeSet, Path: "name", Value: "Grace"}); err != nil {
		t.Fatalf("Apply(set) error: %v", err)
	}
	if out := snapshot(t, s); !strings.Contains(out, "<span>Grace</span>") {
		t.Errorf("after set = %q", out)
	}

	id := buttonID(t, out)
	for i := 0; i < 2; i++ {
		if err := s.Apply(ClientMessage{Type: TypeEvent, ID: id, Event: "click"}); err != nil {
			t.Fatalf("Apply(event) error: %v", err)
		}
	}
	if out := snapshot(t, s); !strings.Contains(out, "<p>3</p>") {
		t.Errorf("after two clicks = %q", out)
	}
}

func TestApplyErrors(t *testing.T) {
	idle := New(Config{Template: "missing.html"}, WithLogger(quietLogger()))
	if got := errors.CodeOf(idle.Apply(ClientMessage{Type: TypeSet, Path: "x"})); got != "P300" {
		t.Errorf("Apply before Load code = %q, want P300", got)
	}

	s, _ := newServer(t, Config{})
	tests := []struct {
		name string
		msg  ClientMessage
		want string
	}{
		{"unknown type", ClientMessage{Type: "reset"}, "P301"},
		{"set without path", ClientMessage{Type: TypeSet, Value: 1}, "P301"},
		{"event without type", ClientMessage{Type: TypeEvent, ID: 1}, "P301"},
		{"no such element", ClientMessage{Type: TypeEvent, ID: 999, Event: "click"}, "B010"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.CodeOf(s.Apply(tt.msg)); got != tt.want {
				t.Errorf("code = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadMissingContainer(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "page.html")
	writeFile(t, tpl, page)

	s := New(Config{Template: tpl, Selector: "#nope"}, WithLogger(quietLogger()))
	if got := errors.CodeOf(s.Load(context.Background())); got != "B009" {
		t.Errorf("code = %q, want B009", got)
	}
}

func TestHTTPRoutes(t *testing.T) {
	s, _ := newServer(t, Config{Metrics: true})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	code, body := get("/")
	if code != http.StatusOK {
		t.Fatalf("GET / status = %d", code)
	}
	for _, want := range []string{RootAttr, "<p>1</p>", "<title>counter</title>", "/ws"} {
		if !strings.Contains(body, want) {
			t.Errorf("GET / missing %q", want)
		}
	}
	if strings.Index(body, "<script>") > strings.Index(body, "</body>") {
		t.Error("client script should be injected before </body>")
	}

	_, body = get("/scope")
	var data map[string]any
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		t.Fatalf("GET /scope: %v", err)
	}
	if data["name"] != "Ada" {
		t.Errorf("scope name = %v", data["name"])
	}

	_, body = get("/metrics")
	if !strings.Contains(body, "fbind_bindings_total") {
		t.Errorf("GET /metrics missing fbind_bindings_total:\n%s", body)
	}
}

func TestMetricsDisabled(t *testing.T) {
	s, _ := newServer(t, Config{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg ServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	return msg
}

func TestWebSocket(t *testing.T) {
	s, _ := newServer(t, Config{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	first := readMessage(t, conn)
	if first.Type != TypeRender || !strings.Contains(first.HTML, "<p>1</p>") {
		t.Fatalf("first message = %+v", first)
	}

	id := buttonID(t, first.HTML)
	if err := conn.WriteJSON(ClientMessage{Type: TypeEvent, ID: id, Event: "click"}); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != TypeRender || !strings.Contains(msg.HTML, "<p>2</p>") {
		t.Errorf("after click = %+v", msg)
	}

	if err := conn.WriteJSON(ClientMessage{Type: "bogus"}); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != TypeError || !strings.Contains(msg.Error, "P301") {
		t.Errorf("bogus message reply = %+v", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{")); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != TypeError {
		t.Errorf("malformed message reply = %+v", msg)
	}
	if s.Clients() != 1 {
		t.Errorf("Clients() = %d, want 1", s.Clients())
	}
}

func TestWatchReloadKeepsScope(t *testing.T) {
	s, tpl := newServer(t, Config{})

	if err := s.Apply(ClientMessage{Type: TypeSet, Path: "count", Value: 7}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Watch(ctx); err != nil {
		t.Fatalf("Watch() error: %v", err)
	}

	writeFile(t, tpl, `<html><body><div id="app"><h1>count is {{count}}</h1></div></body></html>`)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(snapshot(t, s), "<h1>count is 7</h1>") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("template not reloaded, render = %q", snapshot(t, s))
}

func TestWatchRejectsRemoteTemplates(t *testing.T) {
	s := New(Config{Template: "s3://bucket/page.html"}, WithLogger(quietLogger()))
	if err := s.Watch(context.Background()); errors.CodeOf(err) != "P300" {
		t.Errorf("Watch() = %v, want P300", err)
	}
}

func TestInjectScript(t *testing.T) {
	got := injectScript("<html><body><p>x</p></body></html>")
	if !strings.HasSuffix(got, "</script></body></html>") {
		t.Errorf("injectScript() = %q", got)
	}
	if got := injectScript("<p>x</p>"); !strings.HasSuffix(got, "</script>") {
		t.Errorf("injectScript() without body = %q", got)
	}
}

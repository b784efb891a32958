package image

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iabetor/aistory/internal/errs"
)

func TestReplicateGenerate(t *testing.T) {
	var gotInput map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/black-forest-labs/flux-schnell/predictions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer r8_token" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Prefer") != "wait" {
			t.Errorf("missing Prefer: wait header")
		}
		var body struct {
			Input map[string]any `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotInput = body.Input
		fmt.Fprint(w, `{"id":"p1","status":"succeeded","output":["http://x/y.png"]}`)
	}))
	defer server.Close()

	g := NewReplicate(Config{APIURL: server.URL, APIToken: "r8_token"})
	got, err := g.Generate(context.Background(), Request{Prompt: "a fox"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "http://x/y.png" {
		t.Errorf("got %q", got)
	}

	if gotInput["prompt"] != "a fox" {
		t.Errorf("prompt = %v", gotInput["prompt"])
	}
	if gotInput["seed"] != float64(DefaultSeed) {
		t.Errorf("seed = %v, want %d", gotInput["seed"], DefaultSeed)
	}
	if gotInput["num_inference_steps"] != float64(4) || gotInput["guidance_scale"] != 7.5 {
		t.Errorf("unexpected input: %v", gotInput)
	}
}

func TestReplicateGenerate_CustomSeed(t *testing.T) {
	var seed float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input map[string]any `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		seed, _ = body.Input["seed"].(float64)
		fmt.Fprint(w, `{"status":"succeeded","output":"http://x/one.webp"}`)
	}))
	defer server.Close()

	g := NewReplicate(Config{APIURL: server.URL, APIToken: "t"})
	got, err := g.Generate(context.Background(), Request{Prompt: "p", Seed: 42})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "http://x/one.webp" || seed != 42 {
		t.Errorf("got %q seed %v", got, seed)
	}
}

func TestReplicateGenerate_Polls(t *testing.T) {
	var polls int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprintf(w, `{"id":"p1","status":"processing","urls":{"get":"%s/predictions/p1"}}`, server.URL)
			return
		}
		if atomic.AddInt32(&polls, 1) < 2 {
			fmt.Fprintf(w, `{"id":"p1","status":"processing","urls":{"get":"%s/predictions/p1"}}`, server.URL)
			return
		}
		fmt.Fprint(w, `{"id":"p1","status":"succeeded","output":{"url":"http://x/polled.png"}}`)
	}))
	defer server.Close()

	g := NewReplicate(Config{APIURL: server.URL, APIToken: "t"})
	g.pollInterval = time.Millisecond
	got, err := g.Generate(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "http://x/polled.png" {
		t.Errorf("got %q", got)
	}
	if atomic.LoadInt32(&polls) != 2 {
		t.Errorf("polls = %d, want 2", polls)
	}
}

func TestReplicateGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   errs.Kind
	}{
		{"http error", http.StatusUnauthorized, `{"detail":"bad token"}`, errs.KindUpstream},
		{"prediction failed", http.StatusOK, `{"status":"failed","error":"nsfw"}`, errs.KindUpstream},
		{"no url", http.StatusOK, `{"status":"succeeded","output":{"foo":1}}`, errs.KindUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := NewReplicate(Config{APIURL: server.URL, APIToken: "t"}).Generate(context.Background(), Request{Prompt: "p"})
			if !errs.Is(err, tt.kind) {
				t.Errorf("got %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestReplicateGenerate_Validation(t *testing.T) {
	g := NewReplicate(Config{APIToken: "t"})
	if _, err := g.Generate(context.Background(), Request{Prompt: "  "}); !errs.Is(err, errs.KindValidation) {
		t.Errorf("blank prompt: got %v", err)
	}
	g = NewReplicate(Config{})
	if _, err := g.Generate(context.Background(), Request{Prompt: "p"}); !errs.Is(err, errs.KindConfig) {
		t.Errorf("missing token: got %v", err)
	}
}

func TestNew(t *testing.T) {
	if g, err := New(Config{}); err != nil {
		t.Errorf("New(default) failed: %v", err)
	} else if _, ok := g.(*ReplicateGenerator); !ok {
		t.Errorf("default provider should be replicate, got %T", g)
	}
	if g, err := New(Config{Provider: "gemini"}); err != nil {
		t.Errorf("New(gemini) failed: %v", err)
	} else if _, ok := g.(*GeminiGenerator); !ok {
		t.Errorf("got %T", g)
	}
	if _, err := New(Config{Provider: "dalle"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestArchive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("IMG" + r.URL.Path))
	}))
	defer server.Close()

	public := t.TempDir()
	if err := os.MkdirAll(filepath.Join(public, "output", "images"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(public, "output", "images", "local.png"), []byte("LOCAL"), 0644); err != nil {
		t.Fatal(err)
	}

	a := NewArchiver(public)
	a.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	res, err := a.Archive(context.Background(), "小狐狸 <b>", []Item{
		{URL: server.URL + "/a.png", Prompt: "first <prompt>"},
		{URL: server.URL + "/missing.png", Prompt: "second"},
		{URL: "/output/images/local.png", Prompt: "third"},
	})
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if res.Total != 3 || res.Failed != 1 {
		t.Errorf("total=%d failed=%d", res.Total, res.Failed)
	}
	if res.Directory != "/output/2025-01-02T03-04-05-000Z-xiao-hu-li-b" {
		t.Errorf("directory = %q", res.Directory)
	}

	dir := filepath.Join(public, filepath.FromSlash(strings.TrimPrefix(res.Directory, "/")))
	if b, _ := os.ReadFile(filepath.Join(dir, "image-001.webp")); string(b) != "IMG/a.png" {
		t.Errorf("image-001 = %q", b)
	}
	if _, err := os.Stat(filepath.Join(dir, "image-002.webp")); !os.IsNotExist(err) {
		t.Error("failed download should not leave a file")
	}
	if b, _ := os.ReadFile(filepath.Join(dir, "image-003.webp")); string(b) != "LOCAL" {
		t.Errorf("image-003 = %q", b)
	}

	prompts, _ := os.ReadFile(filepath.Join(dir, "prompts.txt"))
	if !strings.Contains(string(prompts), "Image 1:\nfirst <prompt>") || !strings.Contains(string(prompts), "Image 3:") {
		t.Errorf("prompts.txt = %q", prompts)
	}
	errorsTxt, _ := os.ReadFile(filepath.Join(dir, "errors.txt"))
	if !strings.Contains(string(errorsTxt), "Failed to download image 2") {
		t.Errorf("errors.txt = %q", errorsTxt)
	}

	html, _ := os.ReadFile(filepath.Join(dir, "gallery.html"))
	if !strings.Contains(string(html), `src="image-002.webp"`) {
		t.Error("gallery should list every image")
	}
	if strings.Contains(string(html), "<prompt>") || !strings.Contains(string(html), "&lt;prompt&gt;") {
		t.Error("gallery should escape prompts")
	}
}

func TestArchive_RejectsPathOutsideOutput(t *testing.T) {
	root := t.TempDir()
	public := filepath.Join(root, "public")
	if err := os.MkdirAll(filepath.Join(public, "output"), 0755); err != nil {
		t.Fatal(err)
	}
	secrets := filepath.Join(root, "public-secrets")
	if err := os.MkdirAll(secrets, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(secrets, "key.txt"), []byte("TOP-SECRET"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(public, "config.yaml"), []byte("api_key: x"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := NewArchiver(public).Archive(context.Background(), "x", []Item{
		{URL: "/output/../../public-secrets/key.txt"},
		{URL: "/output/../config.yaml"},
		{URL: "/output/.."},
	})
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if res.Failed != 3 {
		t.Errorf("failed = %d, want 3", res.Failed)
	}
	dir := filepath.Join(public, filepath.FromSlash(strings.TrimPrefix(res.Directory, "/")))
	for _, name := range []string{"image-001.webp", "image-002.webp", "image-003.webp"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should not exist", name)
		}
	}
	errorsTxt, _ := os.ReadFile(filepath.Join(dir, "errors.txt"))
	if !strings.Contains(string(errorsTxt), "非法路径") {
		t.Errorf("errors.txt = %q", errorsTxt)
	}
}

func TestArchive_Empty(t *testing.T) {
	public := t.TempDir()
	_, err := NewArchiver(public).Archive(context.Background(), "x", nil)
	if !errs.Is(err, errs.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if entries, _ := os.ReadDir(public); len(entries) != 0 {
		t.Error("empty archive should not create directories")
	}
}

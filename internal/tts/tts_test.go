package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	ttsapi "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"

	"github.com/iabetor/aistory/internal/audio"
	"github.com/iabetor/aistory/internal/config"
	"github.com/iabetor/aistory/internal/errs"
)

func TestShared_LazyInit(t *testing.T) {
	var created int32
	s := NewShared(func(ctx context.Context) (Engine, error) {
		atomic.AddInt32(&created, 1)
		return NewMockEngine(), nil
	})
	if s.Ready() {
		t.Fatal("engine should not be created before Acquire")
	}

	var wg sync.WaitGroup
	engines := make([]Engine, 8)
	for i := range engines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := s.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
			}
			engines[i] = e
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("factory called %d times, want 1", created)
	}
	for _, e := range engines[1:] {
		if e != engines[0] {
			t.Error("Acquire should return the same instance")
		}
	}
}

func TestShared_FailureNotCached(t *testing.T) {
	var attempts int
	s := NewShared(func(ctx context.Context) (Engine, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("model missing")
		}
		return NewMockEngine(), nil
	})

	_, err := s.Acquire(context.Background())
	if !errs.Is(err, errs.KindConfig) {
		t.Fatalf("first Acquire: got %v, want config error", err)
	}
	if s.Ready() {
		t.Fatal("failed init must not be cached")
	}
	if _, err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

type closingEngine struct {
	*MockEngine
	closed bool
}

func (c *closingEngine) Close() { c.closed = true }

func TestShared_Close(t *testing.T) {
	ce := &closingEngine{MockEngine: NewMockEngine()}
	s := NewShared(func(ctx context.Context) (Engine, error) { return ce, nil })
	if _, err := s.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Close()
	if !ce.closed || s.Ready() {
		t.Errorf("closed=%v ready=%v", ce.closed, s.Ready())
	}
}

func TestMockEngine(t *testing.T) {
	m := NewMockEngine("boom")
	samples, rate, err := m.Synthesize(context.Background(), "hello", "af")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if rate != mockSampleRate || len(samples) != 5*mockSampleRate/100 {
		t.Errorf("rate=%d samples=%d", rate, len(samples))
	}
	if _, _, err := m.Synthesize(context.Background(), "it goes boom", "af"); err == nil {
		t.Error("expected failure for FailOn text")
	}
	if calls := m.Calls(); len(calls) != 2 || calls[1].Voice != "af" {
		t.Errorf("calls = %+v", calls)
	}
}

func volcanoServer(t *testing.T, handler func(req volcanoRequest) (int, any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer; ak" {
			t.Errorf("unexpected auth header: %q", r.Header.Get("Authorization"))
		}
		var req volcanoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		status, body := handler(req)
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
}

func TestVolcanoEngine(t *testing.T) {
	wav := audio.EncodeWAV(make([]float32, 200), volcanoSampleRate)
	var got volcanoRequest
	server := volcanoServer(t, func(req volcanoRequest) (int, any) {
		got = req
		return http.StatusOK, map[string]any{"code": 3000, "message": "Success", "data": base64.StdEncoding.EncodeToString(wav)}
	})
	defer server.Close()

	e := NewVolcanoEngine(config.VolcanoConfig{APIURL: server.URL, AppID: "app", AccessKey: "ak", Token: "tok"}, time.Second)
	samples, rate, err := e.Synthesize(context.Background(), "你好", "BV406")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if rate != volcanoSampleRate || len(samples) != 200 {
		t.Errorf("rate=%d samples=%d", rate, len(samples))
	}
	if got.Audio.VoiceType != "BV001_streaming" {
		t.Errorf("unpurchased voice should fall back, got %q", got.Audio.VoiceType)
	}
	if got.App.Token != "tok" || got.App.Cluster != "volcano_tts" || got.Request.Operation != "query" {
		t.Errorf("unexpected request: %+v", got)
	}
}

func TestVolcanoEngine_Emotion(t *testing.T) {
	wav := audio.EncodeWAV(make([]float32, 200), volcanoSampleRate)
	var got volcanoRequest
	server := volcanoServer(t, func(req volcanoRequest) (int, any) {
		got = req
		return http.StatusOK, map[string]any{"code": 3000, "data": base64.StdEncoding.EncodeToString(wav)}
	})
	defer server.Close()

	e := NewVolcanoEngine(config.VolcanoConfig{APIURL: server.URL, AppID: "app", AccessKey: "ak", Token: "tok"}, time.Second)
	if _, _, err := SynthesizeWith(context.Background(), e, "你好", "", "happy"); err != nil {
		t.Fatalf("SynthesizeWith failed: %v", err)
	}
	if got.Audio.Emotion != "happy" {
		t.Errorf("emotion = %q, want happy", got.Audio.Emotion)
	}

	if _, _, err := e.Synthesize(context.Background(), "你好", ""); err != nil {
		t.Fatal(err)
	}
	if got.Audio.Emotion != "" {
		t.Errorf("plain synthesis should not send emotion, got %q", got.Audio.Emotion)
	}
}

type plainEngine struct{ calls int }

func (p *plainEngine) Synthesize(ctx context.Context, text, voice string) ([]float32, int, error) {
	p.calls++
	return []float32{0}, 16000, nil
}

func TestSynthesizeWith_IgnoresEmotionWhenUnsupported(t *testing.T) {
	p := &plainEngine{}
	if _, _, err := SynthesizeWith(context.Background(), p, "hi", "", "sad"); err != nil || p.calls != 1 {
		t.Errorf("calls = %d, err = %v", p.calls, err)
	}

	m := NewMockEngine()
	SynthesizeWith(context.Background(), m, "hi", "af", "sad")
	SynthesizeWith(context.Background(), m, "yo", "af", "")
	calls := m.Calls()
	if len(calls) != 2 || calls[0].Emotion != "sad" || calls[1].Emotion != "" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestVolcanoEngine_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{"bad code", http.StatusOK, map[string]any{"code": 3001, "message": "invalid"}},
		{"tiny audio", http.StatusOK, map[string]any{"code": 3000, "data": base64.StdEncoding.EncodeToString([]byte("x"))}},
		{"no data", http.StatusOK, map[string]any{"code": 3000}},
		{"http 403", http.StatusForbidden, map[string]any{"message": "access denied"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := volcanoServer(t, func(volcanoRequest) (int, any) { return tt.status, tt.body })
			defer server.Close()

			e := NewVolcanoEngine(config.VolcanoConfig{APIURL: server.URL, AppID: "app", AccessKey: "ak", Token: "tok"}, time.Second)
			if _, _, err := e.Synthesize(context.Background(), "hi", ""); !errs.Is(err, errs.KindUpstream) {
				t.Errorf("got %v, want upstream error", err)
			}
		})
	}
}

func TestVolcanoEngine_MissingCredentials(t *testing.T) {
	e := NewVolcanoEngine(config.VolcanoConfig{}, 0)
	if _, _, err := e.Synthesize(context.Background(), "hi", ""); !errs.Is(err, errs.KindConfig) {
		t.Errorf("got %v, want config error", err)
	}
}

type fakeTencentTTS struct {
	req   *ttsapi.TextToVoiceRequest
	audio *string
	err   error
}

func (f *fakeTencentTTS) TextToVoiceWithContext(ctx context.Context, req *ttsapi.TextToVoiceRequest) (*ttsapi.TextToVoiceResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	resp := ttsapi.NewTextToVoiceResponse()
	resp.Response = &ttsapi.TextToVoiceResponseParams{Audio: f.audio}
	return resp, nil
}

func TestTencentEngine_VoiceAndErrors(t *testing.T) {
	fake := &fakeTencentTTS{err: errors.New("AuthFailure")}
	e := &TencentEngine{client: fake, voiceType: 101001}

	if _, _, err := e.Synthesize(context.Background(), "hi", "101016"); !errs.Is(err, errs.KindUpstream) {
		t.Errorf("api error: got %v", err)
	}
	if *fake.req.VoiceType != 101016 {
		t.Errorf("voice type = %d, want 101016", *fake.req.VoiceType)
	}

	fake.err = nil
	if _, _, err := e.Synthesize(context.Background(), "hi", "not-a-number"); !errs.Is(err, errs.KindUpstream) {
		t.Errorf("nil audio: got %v", err)
	}
	if *fake.req.VoiceType != 101001 {
		t.Errorf("voice type = %d, want default", *fake.req.VoiceType)
	}

	fake.audio = common.StringPtr("%%%")
	if _, _, err := e.Synthesize(context.Background(), "hi", ""); !errs.Is(err, errs.KindUpstream) {
		t.Errorf("bad base64: got %v", err)
	}
}

func TestNewTencentEngine_MissingKeys(t *testing.T) {
	if _, err := NewTencentEngine(config.TencentConfig{}); !errs.Is(err, errs.KindConfig) {
		t.Errorf("got %v, want config error", err)
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"mock", "volcano", "edge", "piper", "say"} {
		e, err := New(config.TTSConfig{Engine: name}, time.Second)
		if err != nil || e == nil {
			t.Errorf("New(%s) = %v, %v", name, e, err)
		}
	}
	if _, err := New(config.TTSConfig{Engine: "kokoro"}, time.Second); err == nil {
		t.Error("kokoro without model dir should fail")
	}
	if _, err := New(config.TTSConfig{Engine: "kokoro", Kokoro: config.KokoroConfig{ModelDir: t.TempDir()}}, time.Second); err == nil {
		t.Error("kokoro with empty model dir should fail")
	}
	if _, err := New(config.TTSConfig{Engine: "espeak"}, time.Second); err == nil {
		t.Error("expected error for unknown engine")
	}
}

func TestPiperEngine_Errors(t *testing.T) {
	if _, _, err := NewPiperEngine("").Synthesize(context.Background(), "hi", ""); !errs.Is(err, errs.KindConfig) {
		t.Errorf("missing model: got %v", err)
	}
	p := NewPiperEngine("model.onnx")
	p.binary = fmt.Sprintf("/nonexistent/piper-%d", time.Now().UnixNano())
	if _, _, err := p.Synthesize(context.Background(), "hi", "3"); !errs.Is(err, errs.KindTool) {
		t.Errorf("missing binary: got %v", err)
	}
}

func TestSpeakerID(t *testing.T) {
	if speakerID("bm_lewis") != 10 || speakerID("af_sky") != 4 || speakerID("unknown") != 0 {
		t.Error("unexpected speaker mapping")
	}
}

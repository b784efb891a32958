package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"

	"github.com/iabetor/aistory/internal/errs"
	"github.com/iabetor/aistory/internal/llm"
)

func TestLangCode(t *testing.T) {
	tests := map[string]string{
		"":     "zh",
		"中文":   "zh",
		"英语":   "en",
		"西班牙语": "es",
		"JA":   "ja",
	}
	for in, want := range tests {
		if got := langCode(in); got != want {
			t.Errorf("langCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLLMTranslator(t *testing.T) {
	var got []llm.Message
	var gotOpts llm.Options
	provider := llm.ProviderFunc(func(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
		got = messages
		gotOpts = opts
		return " [Host A]\n你好 ", nil
	})

	out, err := NewLLMTranslator(provider, "zh").Translate(context.Background(), Podcast, "A: Hello")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if out != "[Host A]\n你好" {
		t.Errorf("got %q", out)
	}
	if !strings.Contains(got[0].Content, "Host A/B labels") || !strings.Contains(got[0].Content, "Chinese") {
		t.Errorf("unexpected system prompt: %q", got[0].Content)
	}
	if gotOpts.MaxTokens != 2000 {
		t.Errorf("max tokens = %d, want 2000", gotOpts.MaxTokens)
	}
}

func TestLLMTranslator_StoryScriptPrompt(t *testing.T) {
	var system string
	provider := llm.ProviderFunc(func(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
		system = messages[0].Content
		return "ok", nil
	})
	if _, err := NewLLMTranslator(provider, "").Translate(context.Background(), StoryScript, "x"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(system, "[Narration] and [Dialogue]") {
		t.Errorf("unexpected system prompt: %q", system)
	}
}

func TestLLMTranslator_Errors(t *testing.T) {
	provider := llm.ProviderFunc(func(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
		return "", errors.New("down")
	})
	tr := NewLLMTranslator(provider, "zh")

	if _, err := tr.Translate(context.Background(), Podcast, " "); !errs.Is(err, errs.KindValidation) {
		t.Errorf("blank text: got %v", err)
	}
	if _, err := tr.Translate(context.Background(), "poem", "x"); !errs.Is(err, errs.KindValidation) {
		t.Errorf("unknown kind: got %v", err)
	}
	if _, err := tr.Translate(context.Background(), Podcast, "x"); !errs.Is(err, errs.KindUpstream) {
		t.Errorf("provider failure: got %v", err)
	}
}

type fakeTMT struct {
	req  *tmt.TextTranslateRequest
	resp string
	err  error
}

func (f *fakeTMT) TextTranslateWithContext(ctx context.Context, req *tmt.TextTranslateRequest) (*tmt.TextTranslateResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	resp := tmt.NewTextTranslateResponse()
	resp.Response = &tmt.TextTranslateResponseParams{
		TargetText: common.StringPtr(f.resp),
		Source:     common.StringPtr("en"),
		Target:     common.StringPtr("zh"),
	}
	return resp, nil
}

func TestTencentTranslator(t *testing.T) {
	fake := &fakeTMT{resp: "[旁白]\n夜色很黑。"}
	tr := &TencentTranslator{client: fake, target: "zh"}

	out, err := tr.Translate(context.Background(), StoryScript, "[Narration]\nThe night was dark.")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if out != "[旁白]\n夜色很黑。" {
		t.Errorf("got %q", out)
	}
	if *fake.req.Target != "zh" || *fake.req.Source != "auto" {
		t.Errorf("unexpected request: source=%s target=%s", *fake.req.Source, *fake.req.Target)
	}
}

func TestTencentTranslator_Errors(t *testing.T) {
	tr := &TencentTranslator{target: "zh"}
	if _, err := tr.Translate(context.Background(), Podcast, "hi"); !errs.Is(err, errs.KindConfig) {
		t.Errorf("missing client: got %v", err)
	}

	tr.client = &fakeTMT{err: errors.New("quota")}
	if _, err := tr.Translate(context.Background(), Podcast, "hi"); !errs.Is(err, errs.KindUpstream) {
		t.Errorf("api failure: got %v", err)
	}
	if _, err := tr.Translate(context.Background(), Podcast, strings.Repeat("a", tencentMaxChars+1)); !errs.Is(err, errs.KindValidation) {
		t.Errorf("too long: got %v", err)
	}
}

func TestNew(t *testing.T) {
	if tr, err := New(Config{Provider: "llm"}, nil); err != nil || tr == nil {
		t.Errorf("New(llm) = %v, %v", tr, err)
	}
	if tr, err := New(Config{Provider: "tencent"}, nil); err != nil || tr == nil {
		t.Errorf("New(tencent) without keys = %v, %v", tr, err)
	}
	if _, err := New(Config{Provider: "deepl"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

package voice

import "testing"

func TestCatalog_Kokoro(t *testing.T) {
	voices := Catalog(EngineKokoro)
	if len(voices) != 11 {
		t.Fatalf("kokoro voices = %d, want 11", len(voices))
	}
	for i, v := range voices {
		if v.Speaker != i {
			t.Errorf("%s speaker = %d, want %d", v.ID, v.Speaker, i)
		}
		if !v.Available {
			t.Errorf("%s should be available", v.ID)
		}
	}
	if voices[0].ID != "af" || voices[10].ID != "bm_lewis" {
		t.Errorf("unexpected order: first=%s last=%s", voices[0].ID, voices[10].ID)
	}
}

func TestCatalog_ReturnsCopy(t *testing.T) {
	a := Catalog(EngineKokoro)
	a[0].Name = "changed"
	if b := Catalog(EngineKokoro); b[0].Name != "Default" {
		t.Errorf("catalog mutated through returned slice: %q", b[0].Name)
	}
}

func TestCatalog_Unknown(t *testing.T) {
	voices := Catalog("whatever")
	if len(voices) != 1 || voices[0].ID != "default" {
		t.Errorf("unexpected fallback catalog: %+v", voices)
	}
}

func TestLookup(t *testing.T) {
	d, ok := Lookup(EngineKokoro, "bf_emma")
	if !ok || d.Speaker != 7 || d.Language != "en-gb" {
		t.Errorf("Lookup(bf_emma) = %+v, %v", d, ok)
	}
	if _, ok := Lookup(EngineKokoro, "nope"); ok {
		t.Error("expected miss for unknown voice")
	}
}

func TestNormalizeVolcano(t *testing.T) {
	tests := []struct {
		in       string
		want     string
		replaced bool
	}{
		{"", VolcanoDefault, false},
		{"BV002", "BV002_streaming", false},
		{"BV701_streaming", "BV701_streaming", false},
		{"BV406_streaming", VolcanoDefault, true},
		{"BV700_V2_streaming", VolcanoDefault, true},
		{"BV999", "BV999_streaming", false},
	}
	for _, tt := range tests {
		got, replaced := NormalizeVolcano(tt.in)
		if got != tt.want || replaced != tt.replaced {
			t.Errorf("NormalizeVolcano(%q) = %q, %v; want %q, %v", tt.in, got, replaced, tt.want, tt.replaced)
		}
	}
}

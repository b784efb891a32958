package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestNATSPublisher_Publish(t *testing.T) {
	fc := &fakeConn{}
	p := newNATSPublisher(fc, "")

	err := p.Publish(context.Background(), Event{Kind: "audio", JobID: "job-1", Path: "/output/job-1/audio.wav", Sections: 2, Failed: 1})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(fc.subjects) != 1 || fc.subjects[0] != "aistory.artifacts.audio" {
		t.Fatalf("subjects = %v", fc.subjects)
	}

	var got Event
	if err := json.Unmarshal(fc.payloads[0], &got); err != nil {
		t.Fatal(err)
	}
	if got.Path != "/output/job-1/audio.wav" || got.Failed != 1 || got.CreatedAt.IsZero() {
		t.Errorf("payload = %+v", got)
	}

	p.Close()
	if !fc.drained {
		t.Error("Close should drain the connection")
	}
}

func TestNATSPublisher_Errors(t *testing.T) {
	p := newNATSPublisher(&fakeConn{err: errors.New("nats: connection closed")}, "custom")
	if err := p.Publish(context.Background(), Event{Kind: "gallery"}); err == nil {
		t.Error("expected publish error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newNATSPublisher(&fakeConn{}, "x").Publish(ctx, Event{CreatedAt: time.Now()}); err == nil {
		t.Error("expected context error")
	}
}

func TestConnect_EmptyURL(t *testing.T) {
	p, err := Connect("", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(Noop); !ok {
		t.Errorf("got %T, want Noop", p)
	}
	if err := p.Publish(context.Background(), Event{}); err != nil {
		t.Error(err)
	}
}

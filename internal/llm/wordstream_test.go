package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeProvider struct {
	chunks []*Chunk
}

func (f *fakeProvider) Name() string         { return "fake" }
func (f *fakeProvider) SupportsTools() bool  { return false }
func (f *fakeProvider) Complete(ctx context.Context, req *CompletionRequest) (<-chan *Chunk, error) {
	ch := make(chan *Chunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func TestCollect_ConcatenatesTextUntilDone(t *testing.T) {
	p := &fakeProvider{chunks: []*Chunk{
		{Text: "hello "},
		{Text: "world"},
		{Done: true},
	}}
	text, err := Collect(context.Background(), p, &CompletionRequest{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
}

func TestCollect_PropagatesChunkError(t *testing.T) {
	p := &fakeProvider{chunks: []*Chunk{
		{Text: "partial"},
		{Error: errors.New("boom")},
	}}
	if _, err := Collect(context.Background(), p, &CompletionRequest{}); err == nil {
		t.Fatal("expected error from chunk")
	}
}

func TestStreamWords_FlushesOnDoneAndAccumulatesFull(t *testing.T) {
	p := &fakeProvider{chunks: []*Chunk{
		{Text: "the "},
		{Text: "quick "},
		{Text: "brown fox."},
		{Done: true},
	}}
	var emitted []string
	full, err := StreamWords(context.Background(), p, &CompletionRequest{}, func(partial string) {
		emitted = append(emitted, partial)
	})
	if err != nil {
		t.Fatalf("StreamWords: %v", err)
	}
	if full != "the quick brown fox." {
		t.Errorf("full = %q", full)
	}
	if len(emitted) == 0 {
		t.Fatal("expected at least one partial emission")
	}
	if strings.Join(emitted, "") != full {
		t.Errorf("emitted partials %q do not reconstruct full text %q", emitted, full)
	}
}

func TestEndsWithPunct(t *testing.T) {
	cases := map[string]bool{
		"hello.": true,
		"world":  false,
		"done!":  true,
		"":       false,
	}
	for in, want := range cases {
		if got := endsWithPunct(in); got != want {
			t.Errorf("endsWithPunct(%q) = %v, want %v", in, got, want)
		}
	}
}

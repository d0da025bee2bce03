package llm

import (
	"context"
	"strings"
	"time"
	"unicode"
)

const maxStreamDelay = 150 * time.Millisecond

var punctRunes = map[rune]bool{
	'.': true, ',': true, '!': true, '?': true, ';': true, ':': true,
	'(': true, ')': true, '[': true, ']': true, '{': true, '}': true,
	// CJK sentence/clause punctuation
	'。': true, '、': true, '！': true, '？': true, '；': true, '：': true,
}

// StreamWords drains a token stream from provider and re-batches it into
// word-granular partial emissions with an adaptive cadence: a token ending
// in whitespace or punctuation and buffer/token-count thresholds trigger
// a flush, and the delay
// between flushes shortens for alphanumeric runs and lengthens after
// sentence-terminal punctuation, capped at maxStreamDelay. emit is called
// synchronously for each flush; it must not block indefinitely. Returns
// the full accumulated text once the stream completes.
func StreamWords(ctx context.Context, provider Provider, req *CompletionRequest, emit func(partial string)) (string, error) {
	chunks, err := provider.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	var buf strings.Builder
	var lastToken string
	var totalTokens int
	var sinceBatch int

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		emit(buf.String())
		buf.Reset()
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return full.String(), ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				flush()
				return full.String(), nil
			}
			if chunk.Error != nil {
				flush()
				return full.String(), chunk.Error
			}
			if chunk.Text != "" {
				full.WriteString(chunk.Text)
				buf.WriteString(chunk.Text)
				lastToken = chunk.Text
				totalTokens++
				sinceBatch++

				batchSize := 10 + totalTokens/20
				adaptiveLen := 8 + len(lastToken)/3

				endsWithSpace := strings.TrimRightFunc(lastToken, unicode.IsSpace) != lastToken
				if endsWithPunct(lastToken) || endsWithSpace || buf.Len() >= adaptiveLen || sinceBatch >= batchSize {
					flush()
					sinceBatch = 0
					time.Sleep(streamDelay(lastToken))
				}
			}
			if chunk.Done {
				flush()
				return full.String(), nil
			}
		}
	}
}

func endsWithPunct(token string) bool {
	runes := []rune(token)
	if len(runes) == 0 {
		return false
	}
	return punctRunes[runes[len(runes)-1]]
}

func streamDelay(lastToken string) time.Duration {
	if endsWithPunct(lastToken) {
		return maxStreamDelay
	}
	if isAlphanumericRun(lastToken) {
		return maxStreamDelay / 5
	}
	return maxStreamDelay / 2
}

func isAlphanumericRun(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

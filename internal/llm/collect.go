package llm

import "context"

// Collect drains a non-tool completion to its full text, for the
// classifier/parser-style calls that want one finished string rather than
// a token stream. Only chunk text is collected; the first error chunk
// short-circuits the drain.
func Collect(ctx context.Context, provider Provider, req *CompletionRequest) (string, error) {
	chunks, err := provider.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	var text string
	for {
		select {
		case <-ctx.Done():
			return text, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return text, nil
			}
			if chunk.Error != nil {
				return text, chunk.Error
			}
			text += chunk.Text
			if chunk.Done {
				return text, nil
			}
		}
	}
}

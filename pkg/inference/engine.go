package inference

import (
	"context"

	"github.com/go-go-golems/arbor/pkg/conversation"
)

// ChunkHandler receives incremental response text. delta is the new
// fragment, completion the accumulated text so far. Returning an error
// aborts the stream.
type ChunkHandler func(delta string, completion string) error

// Engine is the response-generation provider: it processes a linearized
// conversation context, invokes the chunk handler zero or more times
// with incremental text, and then signals completion or failure exactly
// once through its return value.
type Engine interface {
	RunInference(ctx context.Context, ictx conversation.InferenceContext, onChunk ChunkHandler) (string, error)
}

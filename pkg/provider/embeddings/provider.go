// Package embeddings defines the Provider interface for vector embedding backends.
//
// An embeddings provider wraps a service that maps text to dense float32
// vectors (e.g., OpenAI text-embedding-3 or a local Ollama model). The memory
// layer embeds every unit on write and embeds chat queries on retrieval, so
// all vectors in one owner's index must come from the same provider instance.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// All embedding vectors returned by a single Provider instance share the same
// dimensionality (returned by Dimensions). Callers must not mix vectors from
// different Provider instances in the same similarity computation unless both
// use the same model and space.
//
// Backend failures are reported as apperr-tagged errors: an unreachable or
// unloaded model carries KindModelUnavailable so that the chat pipeline can
// apply its retry-then-degrade policy.
type Provider interface {
	// Embed computes the embedding vector for a single text string. Returns a
	// float32 slice of length Dimensions() or an error if the request fails or
	// ctx is cancelled. Empty text is rejected.
	//
	// Text is passed to the model verbatim; any model-specific prompt
	// formatting (e.g. a "query: " prefix) is the caller's responsibility.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes embedding vectors for a slice of texts in a single
	// provider call. The returned slice has the same length as texts and the
	// i-th element corresponds to texts[i].
	//
	// Returns an error if any single embedding fails or if ctx is cancelled.
	// Partial results are not returned — on error the entire slice is nil.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of every embedding vector produced
	// by this provider. The value is determined by the underlying model and is
	// constant for the lifetime of the Provider instance.
	Dimensions() int

	// ModelID returns the provider-specific model identifier
	// (e.g., "text-embedding-3-small", "nomic-embed-text"). Recorded on every
	// embedded unit so that stale vectors can be found after a model switch.
	ModelID() string
}

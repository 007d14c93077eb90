package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Embedder turns text into a dense vector for semantic retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

const (
	defaultGeminiEmbedModel = "gemini-embedding-001"
	defaultOpenAIEmbedModel = "text-embedding-3-small"
)

// GeminiEmbedder embeds through the Gemini embedContent API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	dims   int
}

// NewGeminiEmbedder creates an embedder on its own Gemini client.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dims int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := newGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultGeminiEmbedModel
	}
	return &GeminiEmbedder{client: client, model: model, dims: dims}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{}
	if e.dims > 0 {
		d := int32(e.dims)
		cfg.OutputDimensionality = &d
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
	if err != nil {
		return nil, mapGeminiError(err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("empty embedding")}
	}
	return resp.Embeddings[0].Values, nil
}

func (e *GeminiEmbedder) Dimensions() int { return e.dims }

// OpenAIEmbedder embeds through the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
}

func NewOpenAIEmbedder(apiKey, baseURL, model string, dims int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if model == "" {
		model = defaultOpenAIEmbedModel
	}
	return &OpenAIEmbedder{client: newOpenAIClient(apiKey, baseURL), model: model, dims: dims}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dims,
	})
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("empty embedding")}
	}
	return resp.Data[0].Embedding, nil
}

func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

// HashEmbedder is a deterministic bag-of-words embedder. Texts sharing
// words land close together. It needs no network and backs offline runs
// and tests.
type HashEmbedder struct {
	dims int
}

func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &HashEmbedder{dims: dims}
}

func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, e.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New64a()
		h.Write([]byte(w))
		sum := h.Sum64()
		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		vec[(sum>>1)%uint64(e.dims)] += sign
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func (e *HashEmbedder) Dimensions() int { return e.dims }

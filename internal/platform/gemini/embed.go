package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

// Gemini caps batch embedding requests at 100 inputs.
const maxEmbedBatch = 100

type Embedder struct {
	client    *genai.Client
	modelName string
}

func NewEmbedder(ctx context.Context, cfg Config) (*Embedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(cfg.EmbedModel)
	if name == "" {
		name = "text-embedding-004"
	}
	return &Embedder{client: cl, modelName: name}, nil
}

func (g *Embedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Embed returns one vector per input, in input order.
func (g *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	em := g.client.EmbeddingModel(g.modelName)
	em.TaskType = genai.TaskTypeRetrievalDocument

	out := make([][]float32, len(texts))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for start := 0; start < len(texts); start += maxEmbedBatch {
		start := start
		end := start + maxEmbedBatch
		if end > len(texts) {
			end = len(texts)
		}
		eg.Go(func() error {
			batch := em.NewBatch()
			for _, t := range texts[start:end] {
				batch.AddContent(genai.Text(t))
			}
			resp, err := em.BatchEmbedContents(egCtx, batch)
			if err != nil {
				return fmt.Errorf("gemini batch embed: %w", err)
			}
			if len(resp.Embeddings) != end-start {
				return fmt.Errorf("gemini batch embed: got %d vectors for %d inputs", len(resp.Embeddings), end-start)
			}
			for i, e := range resp.Embeddings {
				out[start+i] = e.Values
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedQuery embeds a single search query.
func (g *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	em := g.client.EmbeddingModel(g.modelName)
	em.TaskType = genai.TaskTypeRetrievalQuery
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp.Embedding == nil {
		return nil, errors.New("gemini embed: empty embedding")
	}
	return resp.Embedding.Values, nil
}

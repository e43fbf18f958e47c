package llm

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Generation is one candidate completion for a prompt.
type Generation struct {
	Text string         `json:"text"`
	Info map[string]any `json:"generation_info,omitempty"`
}

// Result holds one slice of generations per input prompt, in input order.
type Result struct {
	Generations [][]Generation `json:"generations"`
}

// Texts returns the first generation's text for each prompt.
func (r *Result) Texts() []string {
	out := make([]string, 0, len(r.Generations))
	for _, gens := range r.Generations {
		if len(gens) == 0 {
			out = append(out, "")
			continue
		}
		out = append(out, gens[0].Text)
	}
	return out
}

// Generate calls c once per prompt and collects the completions in input order.
// With concurrency <= 1 prompts are sent one at a time. Larger values run up to
// that many calls at once. Either way the first failure aborts the batch and
// no partial result is returned.
func Generate(ctx context.Context, c Client, prompts []string, opts *CompletionOptions, concurrency int) (*Result, error) {
	generations := make([][]Generation, len(prompts))

	if concurrency <= 1 {
		for i, p := range prompts {
			text, err := c.GetCompletion(ctx, p, opts)
			if err != nil {
				return nil, fmt.Errorf("generate prompt %d: %w", i, err)
			}
			generations[i] = []Generation{{Text: text}}
		}
		return &Result{Generations: generations}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, p := range prompts {
		g.Go(func() error {
			text, err := c.GetCompletion(gctx, p, opts)
			if err != nil {
				return fmt.Errorf("generate prompt %d: %w", i, err)
			}
			generations[i] = []Generation{{Text: text}}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Result{Generations: generations}, nil
}

package llm

import (
	"context"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"releasetracker/markup"
	"releasetracker/retry"
)

// Degradation sentinels. Generation never fails hard; after every bounded
// retry is exhausted the pipeline hands back well-formed low-quality output
// and the moderator decides what to do with it.
const (
	// PostFailedText is returned when post generation exhausts all attempts.
	PostFailedText = "Post generation failed."
	// GenreUnknown is returned when genre detection exhausts all attempts.
	GenreUnknown = "Unknown"
)

// PipelineConfig bounds the pipeline's retry loops.
type PipelineConfig struct {
	// ChunkWords is the maximum prompt size per generation request.
	ChunkWords int
	// ChunkAttempts bounds retries of a single chunk request.
	ChunkAttempts int
	// ChunkBackoff is the fixed delay between chunk attempts.
	ChunkBackoff time.Duration
	// CallAttempts bounds whole-generation retries when the joined result is empty.
	CallAttempts int
	// CallBackoff is the fixed delay between whole-generation attempts.
	CallBackoff time.Duration
	// MarkupAttempts bounds regeneration when output violates the tag contract.
	MarkupAttempts int
	// MarkupBackoff is the fixed delay between markup regeneration attempts.
	MarkupBackoff time.Duration
}

// DefaultPipelineConfig returns the production retry bounds.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ChunkWords:     1000,
		ChunkAttempts:  20,
		ChunkBackoff:   5 * time.Second,
		CallAttempts:   3,
		CallBackoff:    2 * time.Second,
		MarkupAttempts: 5,
		MarkupBackoff:  time.Second,
	}
}

// Pipeline layers chunking, script validation, degradation sentinels and
// the markup contract on top of a raw Generator.
type Pipeline struct {
	gen Generator
	cfg PipelineConfig
}

// NewPipeline creates a pipeline over the given generator.
func NewPipeline(gen Generator, cfg PipelineConfig) *Pipeline {
	if cfg.ChunkWords <= 0 {
		cfg = DefaultPipelineConfig()
	}
	return &Pipeline{gen: gen, cfg: cfg}
}

// GeneratePost generates announcement text for the prompt. It retries empty
// results up to CallAttempts times and degrades to PostFailedText.
func (p *Pipeline) GeneratePost(ctx context.Context, prompt string) string {
	cfg := retry.Fixed(p.cfg.CallAttempts, p.cfg.CallBackoff)
	text, err := retry.DoValue(ctx, cfg,
		func(v string, err error) bool { return err == nil && v != "" },
		func(ctx context.Context) (string, error) { return p.generateChunked(ctx, prompt) })
	if err != nil || text == "" {
		log.Printf("llm: post generation exhausted, returning failure text: %v", err)
		return PostFailedText
	}
	return text
}

// GenerateGenre generates a genre label for the prompt, degrading to
// GenreUnknown after CallAttempts empty results.
func (p *Pipeline) GenerateGenre(ctx context.Context, prompt string) string {
	cfg := retry.Fixed(p.cfg.CallAttempts, p.cfg.CallBackoff)
	text, err := retry.DoValue(ctx, cfg,
		func(v string, err error) bool { return err == nil && v != "" },
		func(ctx context.Context) (string, error) { return p.generateChunked(ctx, prompt) })
	if err != nil || text == "" {
		log.Printf("llm: genre detection exhausted, returning %q: %v", GenreUnknown, err)
		return GenreUnknown
	}
	return strings.TrimSpace(text)
}

// GenerateValidatedPost generates a post for the video and guarantees the
// result satisfies the Telegram tag contract: up to MarkupAttempts
// regenerations, then a forced markup.CleanForTelegram of the last attempt.
func (p *Pipeline) GenerateValidatedPost(ctx context.Context, title, description string) string {
	prompt := BuildPostPrompt(title, description)
	return p.withMarkupContract(ctx, func(ctx context.Context) string {
		return p.GeneratePost(ctx, prompt)
	})
}

// GenerateValidatedGenre generates a markup-safe genre label for the video.
func (p *Pipeline) GenerateValidatedGenre(ctx context.Context, title, description, videoURL string) string {
	prompt := BuildGenrePrompt(title, description, videoURL)
	return p.withMarkupContract(ctx, func(ctx context.Context) string {
		return p.GenerateGenre(ctx, prompt)
	})
}

// EnsureValidPost makes an already-stored post markup-safe. Text that
// satisfies the contract is cleaned in place; anything else is regenerated
// from the video metadata.
func (p *Pipeline) EnsureValidPost(ctx context.Context, title, description, current string) string {
	if current != "" && markup.IsOnlyAllowedTags(current) {
		return markup.CleanForTelegram(current)
	}
	return p.GenerateValidatedPost(ctx, title, description)
}

// withMarkupContract retries fn until its output passes the tag contract,
// then normalizes it. Exhaustion falls back to forced sanitization of the
// last attempt, so the result is always contract-safe.
func (p *Pipeline) withMarkupContract(ctx context.Context, fn func(context.Context) string) string {
	cfg := retry.Fixed(p.cfg.MarkupAttempts, p.cfg.MarkupBackoff)
	text, err := retry.DoValue(ctx, cfg,
		func(v string, err error) bool { return err == nil && markup.IsOnlyAllowedTags(v) },
		func(ctx context.Context) (string, error) { return fn(ctx), nil })
	if err != nil {
		log.Printf("llm: markup contract not met after %d attempts, sanitizing", p.cfg.MarkupAttempts)
	}
	return markup.CleanForTelegram(text)
}

// generateChunked splits the prompt into word chunks, requests every chunk
// concurrently and joins the successful results in original order. Chunks
// that exhaust their retries contribute nothing to the join.
func (p *Pipeline) generateChunked(ctx context.Context, prompt string) (string, error) {
	words := strings.Fields(prompt)
	if len(words) == 0 {
		return "", nil
	}

	var chunks []string
	for i := 0; i < len(words); i += p.cfg.ChunkWords {
		end := i + p.cfg.ChunkWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}

	results := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			results[i] = p.requestChunk(gctx, chunk)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var parts []string
	for _, r := range results {
		if r != "" {
			parts = append(parts, r)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// requestChunk calls the generator for one chunk, rejecting transport
// failures and output containing a disallowed script. Exhaustion yields an
// empty chunk.
func (p *Pipeline) requestChunk(ctx context.Context, chunk string) string {
	cfg := retry.Fixed(p.cfg.ChunkAttempts, p.cfg.ChunkBackoff)
	text, err := retry.DoValue(ctx, cfg,
		func(v string, err error) bool { return err == nil && !hasDisallowedScript(v) },
		func(ctx context.Context) (string, error) { return p.gen.Generate(ctx, chunk) })
	if err != nil {
		log.Printf("llm: chunk request exhausted: %v", err)
		return ""
	}
	return text
}

// hasDisallowedScript reports whether text contains characters from the CJK
// unified ideographs block. This is a cheap script check, not language
// detection; the model occasionally answers in the wrong language and those
// outputs are rejected wholesale.
func hasDisallowedScript(text string) bool {
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}

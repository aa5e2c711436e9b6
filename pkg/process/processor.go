// Package process composes the per-file pipeline: skip check, optional
// preflight validation, optional result cache, submission with overload
// retry, and result persistence.
package process

import (
	"context"
	"fmt"
	"time"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tei-extract/grobid-client/pkg/batch"
	"github.com/tei-extract/grobid-client/pkg/cache"
	"github.com/tei-extract/grobid-client/pkg/client"
	"github.com/tei-extract/grobid-client/pkg/writer"
)

// FileProcessor turns one input document into a terminal outcome. Safe for
// concurrent use: all fields are read-only after construction.
type FileProcessor struct {
	client  *client.Client
	writer  *writer.Writer
	cache   *cache.Manager // nil disables memoization
	service client.Service
	options client.Options

	// validate runs a local PDF preflight so structurally broken inputs
	// fail fast instead of costing a network round trip.
	validate bool

	logger zerolog.Logger
}

// Config assembles a FileProcessor.
type Config struct {
	Client   *client.Client
	Writer   *writer.Writer
	Cache    *cache.Manager
	Service  client.Service
	Options  client.Options
	Validate bool
}

// New creates a FileProcessor.
func New(cfg Config) (*FileProcessor, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("writer is required")
	}

	return &FileProcessor{
		client:   cfg.Client,
		writer:   cfg.Writer,
		cache:    cfg.Cache,
		service:  cfg.Service,
		options:  cfg.Options,
		validate: cfg.Validate,
		logger:   log.With().Str("component", "processor").Logger(),
	}, nil
}

// Process implements batch.Processor.
func (p *FileProcessor) Process(ctx context.Context, path string) batch.Outcome {
	dest, skip := p.writer.ShouldSkip(path)
	if skip {
		return batch.Skipped(path, dest, "output already exists (use --force to reprocess)")
	}

	if p.validate {
		if err := pdfapi.ValidateFile(path, nil); err != nil {
			return batch.Failed(path, fmt.Sprintf("invalid PDF: %v", err))
		}
	}

	key, cached := p.cacheLookup(ctx, path)
	if cached != nil {
		if err := p.writer.Write(dest, cached.Body); err != nil {
			return batch.Failed(path, fmt.Sprintf("write cached output: %v", err))
		}
		p.logger.Debug().Str("file", path).Msg("Served from result cache")
		return batch.Written(path, dest)
	}

	resp, err := p.client.Process(ctx, client.Request{
		FilePath: path,
		Service:  p.service,
		Options:  p.options,
	})
	if err != nil {
		return batch.Failed(path, err.Error())
	}

	if err := p.writer.Write(dest, resp.Body); err != nil {
		return batch.Failed(path, fmt.Sprintf("write output: %v", err))
	}

	if p.cache != nil && key.Digest != "" {
		entry := &cache.Entry{Body: resp.Body, CachedAt: time.Now()}
		if err := p.cache.Set(ctx, key, entry); err != nil {
			p.logger.Warn().Err(err).Str("file", path).Msg("Failed to cache result")
		}
	}

	return batch.Written(path, dest)
}

// cacheLookup digests the file and consults the result cache. Any cache
// problem degrades to a miss; the file is then processed normally.
func (p *FileProcessor) cacheLookup(ctx context.Context, path string) (cache.Key, *cache.Entry) {
	if p.cache == nil {
		return cache.Key{}, nil
	}

	digest, err := cache.DigestFile(path)
	if err != nil {
		p.logger.Warn().Err(err).Str("file", path).Msg("Failed to digest file for cache")
		return cache.Key{}, nil
	}

	key := cache.Key{
		Digest:  digest,
		Service: string(p.service),
		Options: cache.OptionsFingerprint(
			p.options.GenerateIDs,
			p.options.ConsolidateHeader,
			p.options.ConsolidateCitations,
			p.options.TEICoordinates,
			p.options.CoordinateTypes,
		),
	}

	// A forced run must re-extract; the fresh result refreshes the entry.
	if p.writer.Force {
		return key, nil
	}

	entry, err := p.cache.Get(ctx, key)
	if err != nil {
		if err != cache.ErrCacheMiss {
			p.logger.Warn().Err(err).Str("file", path).Msg("Cache get error")
		}
		return key, nil
	}
	return key, entry
}

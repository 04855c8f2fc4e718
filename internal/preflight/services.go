package preflight

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/Aman-CERP/amanscout/internal/config"
	"github.com/Aman-CERP/amanscout/internal/embed"
	"github.com/Aman-CERP/amanscout/internal/rank"
)

// CheckLanguageModel checks that the ranking model is reachable.
func (c *Checker) CheckLanguageModel(ctx context.Context) CheckResult {
	result := CheckResult{Name: "language_model"}
	rc := c.cfg.Ranker
	provider := strings.ToLower(rc.Provider)

	switch {
	case c.offline:
		result.Status = StatusPass
		result.Message = "offline mode (heuristic ranking)"
		return result
	case provider == "none":
		result.Status = StatusPass
		result.Message = "disabled (heuristic ranking)"
		return result
	}

	if err := c.llmProbe(ctx); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s/%s unavailable, heuristic ranking will be used", provider, rc.Model)
		result.Details = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s/%s ready", provider, rc.Model)
	return result
}

// CheckEmbedder checks that the optimizer's embedding backend is reachable.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{Name: "embedder"}
	oc := c.cfg.Optimizer

	provider, err := embed.ParseProvider(oc.Embedder)
	if err != nil {
		result.Status = StatusWarn
		result.Message = err.Error()
		return result
	}
	if c.offline || provider == embed.ProviderStatic {
		result.Status = StatusPass
		result.Message = "static embeddings (offline)"
		return result
	}

	if err := c.embedderProbe(ctx); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s/%s unavailable, static embeddings will be used", provider, oc.Model)
		result.Details = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s/%s ready", provider, oc.Model)
	return result
}

// CheckBrowser checks for a local Chromium for the dynamic strategy.
func (c *Checker) CheckBrowser() CheckResult {
	result := CheckResult{Name: "browser"}
	sc := c.cfg.Scrape

	if sc.DisableDynamic {
		result.Status = StatusPass
		result.Message = "dynamic strategy disabled"
		return result
	}

	path, ok := c.browserLookup(sc.BrowserBin)
	if !ok {
		result.Status = StatusWarn
		result.Message = "no local Chromium found, one is downloaded on first dynamic fetch"
		result.Details = "Set scrape.browser_bin or scrape.disable_dynamic in config"
		return result
	}

	result.Status = StatusPass
	result.Message = path
	return result
}

// CheckParallelism reports the worker and batch limits for this machine.
func (c *Checker) CheckParallelism() CheckResult {
	result := CheckResult{Name: "parallelism"}
	cpus := runtime.NumCPU()
	workers := c.cfg.Optimizer.MaxWorkers
	batch := c.cfg.Scrape.MaxBatch

	result.Message = fmt.Sprintf("%d embedding workers, %d URLs raced at once (%d CPUs)", workers, batch, cpus)
	if workers > cpus {
		result.Status = StatusWarn
		result.Details = fmt.Sprintf("optimizer.max_workers exceeds CPU count; %d is recommended", min(cpus, 4))
		return result
	}
	result.Status = StatusPass
	return result
}

func (c *Checker) defaultLLMProbe(ctx context.Context) error {
	rc := c.cfg.Ranker
	switch strings.ToLower(rc.Provider) {
	case "genai":
		if c.cfg.APIKey() == "" {
			return fmt.Errorf("no API key in $%s", rc.APIKeyEnv)
		}
		return nil
	default:
		gen := rank.NewOllamaGenerator(rank.OllamaConfig{
			Host:    rc.Host,
			Model:   rc.Model,
			Timeout: config.Duration(rc.Timeout, rank.DefaultLLMTimeout),
		})
		if !gen.Available(ctx) {
			return fmt.Errorf("ollama not reachable at %s", rc.Host)
		}
		return nil
	}
}

func (c *Checker) defaultEmbedderProbe(ctx context.Context) error {
	oc := c.cfg.Optimizer
	provider, err := embed.ParseProvider(oc.Embedder)
	if err != nil {
		return err
	}

	var e embed.Embedder
	switch provider {
	case embed.ProviderGenAI:
		if c.cfg.APIKey() == "" {
			return errors.New("no Gemini API key configured")
		}
		e, err = embed.NewGenAIEmbedder(ctx, c.cfg.APIKey(), oc.Model)
	default:
		e, err = embed.NewOllamaEmbedder(ctx, embed.OllamaConfig{Host: oc.Host, Model: oc.Model})
	}
	if err != nil {
		return err
	}
	return e.Close()
}

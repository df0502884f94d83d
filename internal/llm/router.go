package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ExecPrefix routes a model to the CLI agent generator, e.g. "exec:gemini".
const ExecPrefix = "exec:"

// Router dispatches requests to a provider chosen by model name prefix and
// bounds every call with a timeout.
type Router struct {
	routes   map[string]Generator
	fallback Generator
	timeout  time.Duration
}

// NewRouter creates a router. fallback serves models matching no prefix.
func NewRouter(fallback Generator, timeout time.Duration) *Router {
	return &Router{routes: make(map[string]Generator), fallback: fallback, timeout: timeout}
}

// Route registers g for models starting with prefix.
func (r *Router) Route(prefix string, g Generator) *Router {
	r.routes[prefix] = g
	return r
}

// Generate picks the provider with the longest matching prefix.
func (r *Router) Generate(ctx context.Context, req Request) (Response, error) {
	g, prefix := r.pick(req.Model)
	if g == nil {
		return Response{}, &GenerationError{Provider: "router", Model: req.Model, Err: fmt.Errorf("no provider for model")}
	}
	routed := req
	if prefix == ExecPrefix {
		routed.Model = strings.TrimPrefix(req.Model, ExecPrefix)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.Generate(ctx, routed)
	ev := log.Debug().Str("model", req.Model).Dur("duration", time.Since(start))
	if err != nil {
		ev.Err(err).Msg("generation failed")
		return Response{}, err
	}
	ev.Int("input_tokens", resp.Usage.InputTokens).Int("output_tokens", resp.Usage.OutputTokens).Msg("generation finished")
	resp.Model = req.Model
	return resp, nil
}

func (r *Router) pick(model string) (Generator, string) {
	prefixes := make([]string, 0, len(r.routes))
	for p := range r.routes {
		if strings.HasPrefix(model, p) {
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		return r.fallback, ""
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	return r.routes[prefixes[0]], prefixes[0]
}

// Unavailable is a generator that always fails with err, used in place of a
// provider that could not be configured.
func Unavailable(provider string, err error) Generator {
	return GeneratorFunc(func(_ context.Context, req Request) (Response, error) {
		return Response{}, &GenerationError{Provider: provider, Model: req.Model, Err: err}
	})
}

package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"field-mapper/internal/cache"
	"field-mapper/internal/fallback"
	"field-mapper/internal/form"
	"field-mapper/internal/match"
	"field-mapper/internal/rules"
	"field-mapper/internal/source"
	"field-mapper/internal/store"
	"field-mapper/internal/validate"
)

// DefaultCacheTTL bounds how long a result is served from the cache.
const DefaultCacheTTL = 5 * time.Minute

// Matcher resolves one target field against a source record.
type Matcher interface {
	Match(ctx context.Context, q match.Query) (match.Candidate, bool)
}

// Deps are the collaborators of an Orchestrator. Templates, Rules and
// Matcher are required; a nil Audit or Cache disables that step.
type Deps struct {
	Templates form.Registry
	Rules     *rules.Catalog
	Matcher   Matcher
	Audit     store.AuditLog
	Cache     cache.Cache
	Meter     metric.Meter
}

// Options tunes an Orchestrator.
type Options struct {
	// Parallelism bounds concurrent field resolution; 0 means GOMAXPROCS.
	Parallelism int
	// CacheTTL is how long results are cached; 0 means DefaultCacheTTL.
	CacheTTL time.Duration
}

// Orchestrator runs the mapping pipeline.
type Orchestrator struct {
	templates form.Registry
	catalog   *rules.Catalog
	matcher   Matcher
	fallback  *fallback.Resolver
	validator *validate.Engine
	audit     store.AuditLog
	cache     cache.Cache
	group     singleflight.Group
	metrics   *metrics
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(deps Deps, opts Options, logger *zap.Logger) (*Orchestrator, error) {
	if deps.Templates == nil || deps.Rules == nil || deps.Matcher == nil {
		return nil, errors.New("orchestrator requires templates, rules and a matcher")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}

	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}

	m, err := newMetrics(deps.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	return &Orchestrator{
		templates: deps.Templates,
		catalog:   deps.Rules,
		matcher:   deps.Matcher,
		fallback:  fallback.NewResolver(logger.Named("fallback")),
		validator: validate.NewEngine(logger.Named("validate")),
		audit:     deps.Audit,
		cache:     deps.Cache,
		metrics:   m,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Map resolves every target field of the request's template. The returned
// error is a *ConfigurationError or the context's error.
func (o *Orchestrator) Map(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rs, err := o.catalog.Get(req.Manufacturer)
	if err != nil {
		return nil, &ConfigurationError{Manufacturer: req.Manufacturer, Template: req.Template, Err: err}
	}

	specs, err := o.templates.Fields(ctx, req.Manufacturer, req.Template)
	if err != nil {
		return nil, &ConfigurationError{Manufacturer: req.Manufacturer, Template: req.Template, Err: err}
	}

	key, cacheable := o.cacheKey(req)
	if !cacheable {
		return o.run(ctx, req, rs, specs)
	}

	if res, ok := o.cached(ctx, key, req); ok {
		return res, nil
	}

	// The shared run ignores the cancellation of whichever caller started
	// it. Each caller stops waiting when its own context is done.
	shared := context.WithoutCancel(ctx)

	ch := o.group.DoChan(key, func() (any, error) {
		res, err := o.run(shared, req, rs, specs)
		if err != nil {
			return nil, err
		}

		o.store(shared, key, res)

		return res, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}

		res := r.Val.(*Result).Clone()
		if r.Shared {
			o.logger.Debug("mapping run shared with a concurrent request", zap.String("run_id", res.RunID))
		}

		return res, nil
	}
}

func (o *Orchestrator) run(ctx context.Context, req Request, rs *rules.RuleSet, specs []form.TargetFieldSpec) (*Result, error) {
	start := o.now()
	runID := uuid.NewString()
	rec := source.Flatten(req.Source)
	scope := match.Scope{Manufacturer: req.Manufacturer, Template: req.Template}

	logger := o.logger.With(
		zap.String("run_id", runID),
		zap.String("manufacturer", req.Manufacturer),
		zap.String("template", req.Template))

	fields := make([]FieldResult, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Parallelism)

	for i, spec := range specs {
		g.Go(func() error {
			fields[i] = o.resolveField(gctx, logger, rs, scope, rec, req.Enhancement, spec)
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.applyFallback(rs, rec, specs, fields)

	res := &Result{
		RunID:        runID,
		Manufacturer: req.Manufacturer,
		Template:     req.Template,
		Mode:         req.Mode,
		Fields:       fields,
	}

	res.Validation = o.validator.Validate(rs, validationFields(specs, fields), req.Mode)

	elapsed := o.now().Sub(start)
	res.Statistics = statistics(fields, elapsed)

	o.appendAudit(context.WithoutCancel(ctx), logger, res, start)
	o.metrics.recordRun(ctx, res, elapsed)

	logger.Info("mapping run finished",
		zap.Int("total", res.Statistics.TotalFields),
		zap.Int("matched", res.Statistics.Matched),
		zap.Int("fallback", res.Statistics.Fallback),
		zap.Int("unmapped", res.Statistics.Unmapped),
		zap.Bool("valid", res.Validation.Valid),
		zap.Duration("duration", elapsed))

	return res, nil
}

// resolveField matches one field and applies its transform. A panic or a
// transform error downgrades the field to UNMAPPABLE without touching its
// siblings. Unmatched fields stay PENDING for the fallback pass.
func (o *Orchestrator) resolveField(
	ctx context.Context,
	logger *zap.Logger,
	rs *rules.RuleSet,
	scope match.Scope,
	rec source.Record,
	enh match.Enhancement,
	spec form.TargetFieldSpec,
) (fr FieldResult) {
	fr = FieldResult{
		Field:    spec.Name,
		Status:   StatusPending,
		Section:  spec.Section,
		Required: spec.Required,
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("field resolution panicked", zap.String("field", spec.Name), zap.Any("panic", r))

			fr = unmappable(spec, fmt.Sprintf("resolution failed: %v", r))
		}
	}()

	if ctx.Err() != nil {
		return fr
	}

	q := match.Query{
		Scope:      scope,
		Target:     spec.Name,
		Record:     rec,
		Variations: rs.Variations(spec.Name),
	}

	if ev, ok := enh[spec.Name]; ok {
		q.Enhanced = &ev
	}

	c, ok := o.matcher.Match(ctx, q)
	if !ok {
		return fr
	}

	value, err := rs.Transform(spec, c.Value)
	if err != nil {
		logger.Warn("transform failed",
			zap.String("field", spec.Name),
			zap.String("source_key", c.SourceKey),
			zap.Error(err))

		return unmappable(spec, err.Error())
	}

	fr.Value = value
	fr.Status = StatusMatched
	fr.Strategy = c.Strategy.String()
	fr.Confidence = c.Confidence
	fr.SourceKey = c.SourceKey

	return fr
}

func unmappable(spec form.TargetFieldSpec, reason string) FieldResult {
	return FieldResult{
		Field:       spec.Name,
		Status:      StatusUnmappable,
		Strategy:    fallback.TierUnmappable.String(),
		Suggestions: fallback.Suggestions(spec.Name),
		Error:       reason,
		Section:     spec.Section,
		Required:    spec.Required,
	}
}

// applyFallback runs a single fallback pass over the PENDING fields. Only
// matcher results feed derivations.
func (o *Orchestrator) applyFallback(rs *rules.RuleSet, rec source.Record, specs []form.TargetFieldSpec, fields []FieldResult) {
	resolved := make(map[string]string, len(fields))
	index := make(map[string]int, len(fields))

	var pending []form.TargetFieldSpec

	for i, f := range fields {
		switch f.Status {
		case StatusMatched:
			resolved[f.Field] = f.Value
		case StatusPending:
			pending = append(pending, specs[i])
			index[f.Field] = i
		}
	}

	if len(pending) == 0 {
		return
	}

	results := o.fallback.Resolve(fallback.Input{Rules: rs, Resolved: resolved, Record: rec}, pending)

	for _, r := range results {
		i, ok := index[r.Field]
		if !ok {
			continue
		}

		f := &fields[i]
		f.Value = r.Value
		f.Strategy = r.Tier.String()
		f.Confidence = r.Confidence
		f.Inputs = r.Inputs
		f.Suggestions = r.Suggestions

		if r.Resolved() {
			f.Status = StatusFallback
		} else {
			f.Status = StatusUnmappable
			f.Confidence = 0
		}
	}
}

func validationFields(specs []form.TargetFieldSpec, fields []FieldResult) []validate.Field {
	out := make([]validate.Field, len(fields))
	for i, f := range fields {
		out[i] = validate.Field{
			Spec:       specs[i],
			Value:      f.Value,
			Confidence: f.Confidence,
			Mapped:     f.Status != StatusUnmappable,
		}
	}

	return out
}

func statistics(fields []FieldResult, elapsed time.Duration) Statistics {
	s := Statistics{TotalFields: len(fields), DurationMS: elapsed.Milliseconds()}

	for _, f := range fields {
		switch f.Status {
		case StatusMatched:
			s.Matched++

			switch f.Strategy {
			case match.StrategyLearned.String():
				s.Learned++
			case match.StrategyEnhanced.String():
				s.Enhanced++
			}
		case StatusFallback:
			s.Fallback++
		default:
			s.Unmapped++
		}
	}

	return s
}

// appendAudit writes one entry per field. Failures are logged and dropped.
func (o *Orchestrator) appendAudit(ctx context.Context, logger *zap.Logger, res *Result, ts time.Time) {
	if o.audit == nil {
		return
	}

	entries := make([]store.AuditEntry, len(res.Fields))
	for i, f := range res.Fields {
		entries[i] = store.AuditEntry{
			RunID:        res.RunID,
			Manufacturer: res.Manufacturer,
			Template:     res.Template,
			TargetField:  f.Field,
			SourceField:  f.SourceKey,
			Strategy:     f.Strategy,
			Status:       f.Status.String(),
			Confidence:   f.Confidence,
			Success:      f.Status != StatusUnmappable,
			Timestamp:    ts,
		}
	}

	if err := o.audit.Append(ctx, entries...); err != nil {
		logger.Warn("failed to append audit entries", zap.Int("entries", len(entries)), zap.Error(err))
	}
}

// cacheKey hashes the request. encoding/json sorts map keys, so equal
// payloads produce equal keys. Payloads that cannot be encoded are not
// cached.
func (o *Orchestrator) cacheKey(req Request) (string, bool) {
	src, err := json.Marshal(req.Source)
	if err != nil {
		o.logger.Debug("source payload is not cacheable", zap.Error(err))
		return "", false
	}

	enh, err := json.Marshal(req.Enhancement)
	if err != nil {
		return "", false
	}

	return cache.Key(
		[]byte(req.Manufacturer),
		[]byte(req.Template),
		[]byte(req.Mode.String()),
		src,
		enh,
	), true
}

func (o *Orchestrator) cached(ctx context.Context, key string, req Request) (*Result, bool) {
	if o.cache == nil {
		return nil, false
	}

	data, ok, err := o.cache.Get(ctx, key)
	if err != nil {
		o.logger.Warn("result cache read failed", zap.String("manufacturer", req.Manufacturer), zap.Error(err))
		return nil, false
	}

	if !ok {
		return nil, false
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		o.logger.Warn("discarding undecodable cached result", zap.Error(err))
		return nil, false
	}

	res.Cached = true

	o.metrics.recordCacheHit(ctx, req.Manufacturer)

	return &res, true
}

func (o *Orchestrator) store(ctx context.Context, key string, res *Result) {
	if o.cache == nil {
		return
	}

	data, err := json.Marshal(res)
	if err != nil {
		o.logger.Warn("failed to encode result for cache", zap.Error(err))
		return
	}

	if err := o.cache.Set(ctx, key, data, o.opts.CacheTTL); err != nil {
		o.logger.Warn("result cache write failed", zap.String("manufacturer", res.Manufacturer), zap.Error(err))
	}
}

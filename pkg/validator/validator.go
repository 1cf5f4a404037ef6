// Package validator determines what a discovered Google Maps API key can
// actually do: whether it is live, which services it has enabled, and how
// narrowly its usage is restricted.
package validator

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/CodeMonkeyCybersecurity/gmapper/internal/logger"
	"github.com/CodeMonkeyCybersecurity/gmapper/internal/ratelimit"
	"github.com/CodeMonkeyCybersecurity/gmapper/internal/telemetry"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/catalog"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/probe"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
)

// sweepConcurrency bounds how many service probes run at once during the
// full catalog sweep.
const sweepConcurrency = 5

// MetadataSource fetches privileged key restriction metadata out-of-band,
// e.g. through the Google Cloud management API with a service account.
// It is optional; without one, restriction status stays undetermined.
type MetadataSource interface {
	KeyMetadata(ctx context.Context, key string) (map[string]interface{}, error)
}

// Options configures a Validator.
type Options struct {
	EnableCaching bool
	CacheTTL      time.Duration
}

// Validator probes one credential across the whole service catalog and
// memoizes the outcome. Safe for concurrent use: the cache serializes its
// own access, and a sweep shares no mutable state between probes. A race
// between two validations of the same key at worst probes twice; the
// later completion overwrites the cache entry whole.
type Validator struct {
	catalog   *catalog.Catalog
	prober    *probe.Prober
	limiter   *ratelimit.Limiter
	metadata  MetadataSource
	logger    *logger.Logger
	telemetry telemetry.Telemetry

	// cache is nil when caching is disabled. Entries expire by TTL and
	// are never actively evicted; stale entries are ignored on read and
	// overwritten on the next completion.
	cache    *gocache.Cache
	cacheTTL time.Duration
}

// New creates a Validator. metadata may be nil.
func New(cat *catalog.Catalog, prober *probe.Prober, limiter *ratelimit.Limiter, metadata MetadataSource, tel telemetry.Telemetry, log *logger.Logger, opts Options) *Validator {
	v := &Validator{
		catalog:   cat,
		prober:    prober,
		limiter:   limiter,
		metadata:  metadata,
		logger:    log.WithComponent("validator"),
		telemetry: tel,
		cacheTTL:  opts.CacheTTL,
	}
	if opts.EnableCaching {
		// No janitor: expired entries are skipped on read, not swept.
		v.cache = gocache.New(opts.CacheTTL, 0)
	}
	return v
}

// Validate establishes what the key can do. The ctx carries tracing only;
// once started, validation runs to its own bounded completion (per-probe
// timeouts times retries) and cannot be cancelled from outside.
func (v *Validator) Validate(ctx context.Context, key string) types.ValidationResult {
	log := v.logger.WithKey(types.TruncateKey(key))

	if v.cache != nil {
		if cached, found := v.cache.Get(key); found {
			result := cached.(types.ValidationResult)
			log.Debugw("Validation cache hit", "valid", result.Valid)
			v.telemetry.RecordValidation(ctx, result.Valid, true)
			return result
		}
	}

	ctx, span := v.logger.StartOperation(ctx, "validator.Validate")
	start := time.Now()

	// Probes must not be aborted mid-sweep by a caller hanging up; the
	// sweep bounds its own time.
	probeCtx := context.WithoutCancel(ctx)

	result := types.ValidationResult{
		Key:               key,
		RestrictionStatus: types.RestrictionUnknown,
	}

	canary := v.validateCanary(probeCtx, key)
	if canary.ok {
		result.Valid = true
		result.Services = v.sweepServices(probeCtx, key)
		v.resolveRestrictions(probeCtx, key, &result)
	} else {
		result.Error = canary.errMsg
		log.Infow("Key validation failed", "error", result.Error)
	}

	if v.cache != nil {
		v.cache.Set(key, result, v.cacheTTL)
	}

	v.telemetry.RecordValidation(ctx, result.Valid, false)
	v.logger.FinishOperation(ctx, span, "validator.Validate", start, nil,
		"valid", result.Valid,
		"services", len(result.Services),
		"restriction_status", string(result.RestrictionStatus),
	)
	return result
}

type canaryOutcome struct {
	ok     bool
	errMsg string
}

// validateCanary probes the cheapest catalog endpoint to establish basic
// key validity before paying for a full sweep.
func (v *Validator) validateCanary(ctx context.Context, key string) canaryOutcome {
	desc := v.catalog.Canary()
	target := desc.ProbeTarget(key)

	if err := v.limiter.WaitForHost(ctx, probe.Host(target)); err != nil {
		return canaryOutcome{errMsg: "Network error: " + err.Error()}
	}

	res := v.prober.Probe(ctx, target)
	v.telemetry.RecordProbe(ctx, string(desc.ID), res.Success)

	if res.Success && res.StatusCode == 200 {
		return canaryOutcome{ok: true}
	}
	return canaryOutcome{errMsg: probe.FailureMessage(res)}
}

// sweepServices probes every catalog endpoint concurrently and waits for
// all of them; there are no partial results. Each probe writes only its
// own slot, so the sweep needs no locking.
func (v *Validator) sweepServices(ctx context.Context, key string) []types.ServiceStatus {
	descriptors := v.catalog.Services()
	statuses := make([]types.ServiceStatus, len(descriptors))

	var g errgroup.Group
	g.SetLimit(sweepConcurrency)

	for i, desc := range descriptors {
		g.Go(func() error {
			statuses[i] = v.probeService(ctx, desc, key)
			return nil
		})
	}
	// Join barrier: every probe completes before the result is assembled.
	_ = g.Wait()

	return statuses
}

// probeService classifies one service for the key. Probe failures never
// propagate; they degrade into a disabled classification with an
// explanatory message.
func (v *Validator) probeService(ctx context.Context, desc catalog.Descriptor, key string) types.ServiceStatus {
	status := types.ServiceStatus{
		ID:       string(desc.ID),
		Name:     desc.Name,
		Category: desc.Category,
	}

	if !desc.Probeable() {
		status.Error = "Service has no probe endpoint"
		return status
	}

	target := desc.ProbeTarget(key)
	if err := v.limiter.WaitForHost(ctx, probe.Host(target)); err != nil {
		status.Error = err.Error()
		return status
	}

	res := v.prober.Probe(ctx, target)
	v.telemetry.RecordProbe(ctx, string(desc.ID), res.Success && res.StatusCode == 200)

	if res.Success && res.StatusCode == 200 {
		status.Enabled = true
		return status
	}

	if msg := probe.ServiceError(res.Body); msg != "" {
		status.Error = msg
	} else if res.Error != "" {
		status.Error = res.Error
	} else {
		status.Error = "Service not enabled"
	}
	return status
}

// resolveRestrictions fills in restriction status. With a metadata source
// the status comes from real key metadata; without one it stays the
// undetermined sentinel, because a single vantage point cannot prove a
// key unrestricted.
func (v *Validator) resolveRestrictions(ctx context.Context, key string, result *types.ValidationResult) {
	if v.metadata == nil {
		result.RestrictionStatus = types.RestrictionUndetermined
		return
	}

	md, err := v.metadata.KeyMetadata(ctx, key)
	if err != nil || md == nil {
		if err != nil {
			v.logger.Warnw("Key metadata fetch failed", "error", err.Error())
		}
		result.RestrictionStatus = types.RestrictionUndetermined
		return
	}

	result.Metadata = md
	restrictions, _ := md["restrictions"].(map[string]interface{})
	result.Restrictions = restrictions
	result.RestrictionStatus = classifyRestrictions(restrictions)
}

// restrictionKinds maps metadata restriction keys to their reported
// labels, in deterministic output order.
var restrictionKinds = []struct {
	key   string
	label string
}{
	{"browserKeyRestrictions", "HTTP_REFERRER"},
	{"serverKeyRestrictions", "IP_ADDRESS"},
	{"androidKeyRestrictions", "ANDROID_APP"},
	{"iosKeyRestrictions", "IOS_APP"},
}

// classifyRestrictions turns a restrictions object from key metadata into
// a restriction status. An empty object after a successful fetch is
// positive evidence of an unrestricted key.
func classifyRestrictions(restrictions map[string]interface{}) types.RestrictionStatus {
	if len(restrictions) == 0 {
		return types.RestrictionUnrestricted
	}

	var labels []string
	for _, kind := range restrictionKinds {
		if _, ok := restrictions[kind.key]; ok {
			labels = append(labels, kind.label)
		}
	}
	if len(labels) == 0 {
		return types.RestrictionUnknown
	}

	joined := labels[0]
	for _, l := range labels[1:] {
		joined += ", " + l
	}
	return types.RestrictionStatus("RESTRICTED (" + joined + ")")
}

// CacheLen reports how many entries the cache holds, including ones that
// have gone stale but were never swept.
func (v *Validator) CacheLen() int {
	if v.cache == nil {
		return 0
	}
	return v.cache.ItemCount()
}

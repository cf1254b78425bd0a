// Command gojwt-loadtest measures Engine sign and verify throughput against
// a Redis revocation list.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goJWT"
	"github.com/MrEthical07/goJWT/revocation"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type options struct {
	tokens      int
	concurrency int
	ops         int
	alg         goJWT.Algorithm
	revokeRatio float64
	redisAddr   string
	prefix      string
}

func parseFlags() (options, error) {
	var (
		o       options
		algName string
	)
	flag.IntVar(&o.tokens, "tokens", 10000, "tokens signed before the verify phase")
	flag.IntVar(&o.concurrency, "concurrency", 256, "concurrent workers")
	flag.IntVar(&o.ops, "ops", 200000, "operations per phase")
	flag.StringVar(&algName, "alg", "EdDSA", "signing algorithm")
	flag.Float64Var(&o.revokeRatio, "revoke-ratio", 0.1, "fraction of the token pool revoked before verifying")
	flag.StringVar(&o.redisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "redis address; miniredis when empty")
	flag.StringVar(&o.prefix, "prefix", revocation.DefaultPrefix, "revocation key prefix")
	flag.Parse()

	switch {
	case o.tokens <= 0 || o.concurrency <= 0 || o.ops <= 0:
		return o, errors.New("tokens, concurrency and ops must be positive")
	case o.revokeRatio < 0 || o.revokeRatio > 1:
		return o, errors.New("revoke-ratio must be within [0, 1]")
	}
	alg, err := goJWT.ParseAlgorithm(algName)
	if err != nil {
		return o, err
	}
	if alg == goJWT.None {
		return o, errors.New("alg none cannot be load tested")
	}
	o.alg = alg
	return o, nil
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if err := run(context.Background(), opts, logger); err != nil {
		logger.Error("load test failed", zap.Error(err))
		os.Exit(1)
	}
}

// connectRedis dials addr, or starts an in-process miniredis when addr is
// empty. The returned func releases both.
func connectRedis(addr string, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		logger.Info("using redis", zap.String("addr", addr))
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Info("using miniredis", zap.String("addr", mr.Addr()))
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func run(ctx context.Context, opts options, logger *zap.Logger) error {
	client, release, err := connectRedis(opts.redisAddr, logger)
	if err != nil {
		return err
	}
	defer release()

	key, err := generateKey(opts.alg)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	cfg := goJWT.DefaultConfig()
	cfg.Signing.Algorithm = opts.alg
	cfg.Signing.PrivateKey = key
	cfg.Signing.Issuer = "gojwt-loadtest"
	cfg.Signing.TTL = time.Hour
	cfg.Async.MaxConcurrent = int64(opts.concurrency)

	engine, err := goJWT.New().
		WithConfig(cfg).
		WithRevoker(revocation.NewRedisStore(client, revocation.Config{Prefix: opts.prefix})).
		WithLatencyHistograms(true).
		WithLogger(logger.Named("engine")).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	seedStart := time.Now()
	pool := make([]string, opts.tokens)
	for i := range pool {
		if pool[i], err = engine.Sign(ctx, goJWT.NewClaims().Set("sub", fmt.Sprintf("user-%d", i))); err != nil {
			return fmt.Errorf("seed sign: %w", err)
		}
	}
	revoked := int(float64(len(pool)) * opts.revokeRatio)
	for _, token := range pool[:revoked] {
		if err := engine.Revoke(ctx, token); err != nil {
			return fmt.Errorf("seed revoke: %w", err)
		}
	}
	logger.Info("token pool ready",
		zap.Stringer("alg", opts.alg),
		zap.Int("tokens", len(pool)),
		zap.Int("revoked", revoked),
		zap.Duration("took", time.Since(seedStart)))

	sign, err := runPhase(ctx, opts.ops, opts.concurrency, func(ctx context.Context, r *rand.Rand) error {
		_, err := engine.Sign(ctx, goJWT.NewClaims().Set("sub", "load").Set("n", r.Int64()))
		return err
	})
	if err != nil {
		return fmt.Errorf("sign phase: %w", err)
	}
	verify, err := runPhase(ctx, opts.ops, opts.concurrency, func(ctx context.Context, r *rand.Rand) error {
		_, err := engine.Verify(ctx, pool[r.IntN(len(pool))])
		return err
	})
	if err != nil {
		return fmt.Errorf("verify phase: %w", err)
	}

	sign.print("sign")
	verify.print("verify")

	snap := engine.MetricsSnapshot()
	logger.Info("verify outcomes",
		zap.Uint64("success", snap.Counters[goJWT.MetricVerifySuccess]),
		zap.Uint64("revoked", snap.Counters[goJWT.MetricVerifyRevoked]),
		zap.Uint64("revocation_unavailable", snap.Counters[goJWT.MetricRevocationUnavailable]))
	return nil
}

// runPhase spreads ops calls of fn over concurrency workers. fn errors count
// as failures; only a cancelled context aborts the phase.
func runPhase(ctx context.Context, ops, concurrency int, fn func(context.Context, *rand.Rand) error) (phaseStats, error) {
	var next, failures atomic.Int64
	perWorker := make([][]time.Duration, concurrency)

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := range concurrency {
		g.Go(func() error {
			r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(w)))
			samples := make([]time.Duration, 0, ops/concurrency+1)
			defer func() { perWorker[w] = samples }()

			for next.Add(1) <= int64(ops) {
				if err := gctx.Err(); err != nil {
					return err
				}
				t0 := time.Now()
				if err := fn(gctx, r); err != nil {
					failures.Add(1)
				}
				samples = append(samples, time.Since(t0))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return phaseStats{}, err
	}
	return newPhaseStats(time.Since(start), slices.Concat(perWorker...), failures.Load()), nil
}

type phaseStats struct {
	total         time.Duration
	ops           int
	failures      int64
	p50, p95, p99 time.Duration
}

func newPhaseStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	slices.Sort(samples)
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
	}
}

// percentile expects sorted samples.
func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	return samples[min(len(samples)-1, (len(samples)-1)*p/100)]
}

func (s phaseStats) print(name string) {
	var rate float64
	if s.total > 0 {
		rate = float64(s.ops) / s.total.Seconds()
	}
	fmt.Printf("%-6s ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures,
		s.total.Round(time.Millisecond), rate,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond))
}

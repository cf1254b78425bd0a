package goJWT

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/goJWT/revocation"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var benchAlgorithms = []Algorithm{HS256, RS256, PS256, ES256, EdDSA}

func BenchmarkSign(b *testing.B) {
	for _, alg := range benchAlgorithms {
		b.Run(alg.String(), func(b *testing.B) {
			signKey, _ := keyPairForAlgorithm(b, alg)
			key, err := ParseSigningKey(alg, signKey)
			if err != nil {
				b.Fatalf("ParseSigningKey failed: %v", err)
			}
			claims := NewClaims().Set("sub", "alice").Set("role", "member")
			opts := SignOptions{Algorithm: alg, ExpiresIn: In(10 * time.Minute)}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := SignWithKey(claims, key, opts); err != nil {
					b.Fatalf("sign failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkVerify(b *testing.B) {
	for _, alg := range benchAlgorithms {
		b.Run(alg.String(), func(b *testing.B) {
			signKey, verifyKey := keyPairForAlgorithm(b, alg)
			token, err := Sign(NewClaims().Set("sub", "alice"), signKey, SignOptions{Algorithm: alg, ExpiresIn: In(10 * time.Minute)})
			if err != nil {
				b.Fatalf("sign failed: %v", err)
			}
			key, err := ParseVerificationKey(verifyKey)
			if err != nil {
				b.Fatalf("ParseVerificationKey failed: %v", err)
			}
			opts := VerifyOptions{Algorithms: []Algorithm{alg}}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := VerifyWithKey(token, key, opts); err != nil {
					b.Fatalf("verify failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkEngineVerify(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b, false)
	defer cleanup()
	benchmarkEngineVerify(b, engine)
}

func BenchmarkEngineVerifyWithRevocation(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b, true)
	defer cleanup()
	benchmarkEngineVerify(b, engine)
}

func BenchmarkEngineSignParallel(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b, false)
	defer cleanup()

	claims := NewClaims().Set("sub", "alice")
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := engine.Sign(context.Background(), claims); err != nil {
				b.Fatalf("sign failed: %v", err)
			}
		}
	})
}

func benchmarkEngineVerify(b *testing.B, engine *Engine) {
	b.Helper()

	token, err := engine.Sign(context.Background(), NewClaims().Set("sub", "alice"))
	if err != nil {
		b.Fatalf("sign failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Verify(context.Background(), token); err != nil {
			b.Fatalf("verify failed: %v", err)
		}
	}
}

func newBenchmarkEngine(tb testing.TB, withRevocation bool) (*Engine, func()) {
	tb.Helper()

	cfg := hmacTestConfig()
	cfg.Metrics.Enabled = false
	cfg.Audit.Enabled = false
	cfg.Signing.TTL = 10 * time.Minute

	builder := New().WithConfig(cfg)

	var (
		mr  *miniredis.Miniredis
		rdb *redis.Client
	)
	if withRevocation {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			tb.Fatalf("miniredis.Run failed: %v", err)
		}
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		builder.WithRevoker(revocation.NewRedisStore(rdb, revocation.Config{}))
	}

	engine, err := builder.Build()
	if err != nil {
		tb.Fatalf("Build failed: %v", err)
	}

	return engine, func() {
		engine.Close()
		if rdb != nil {
			_ = rdb.Close()
			mr.Close()
		}
	}
}

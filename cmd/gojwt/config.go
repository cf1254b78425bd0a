package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/goJWT"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// cliConfig holds defaults read from the environment. Flags override them.
type cliConfig struct {
	Algorithm  string         `env:"GOJWT_ALG" envDefault:"HS256"`
	Algorithms []string       `env:"GOJWT_ALGS" envSeparator:","`
	Key        string         `env:"GOJWT_KEY"`
	KeyFile    string         `env:"GOJWT_KEY_FILE"`
	KeyID      string         `env:"GOJWT_KID"`
	Issuer     string         `env:"GOJWT_ISSUER"`
	Audience   []string       `env:"GOJWT_AUDIENCE" envSeparator:","`
	ExpiresIn  goJWT.TimeSpan `env:"GOJWT_EXPIRES_IN"`
	Leeway     time.Duration  `env:"GOJWT_LEEWAY"`
	MaxAge     time.Duration  `env:"GOJWT_MAX_AGE"`
	LogLevel   string         `env:"GOJWT_LOG_LEVEL" envDefault:"warn"`
}

// environFromOS merges the process environment with an optional .env file.
// Variables already set in the process win.
func environFromOS(envFile string) (map[string]string, error) {
	out := make(map[string]string)
	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
		for k, v := range fileVars {
			out[k] = v
		}
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			out[k] = v
		}
	}
	return out, nil
}

func loadConfig(environ map[string]string) (cliConfig, error) {
	var cfg cliConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return cliConfig{}, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

// loadKey returns the key bytes: GOJWT_KEY when set, else the key file.
// Trailing newlines are stripped from non-PEM files so shared secrets
// written with echo keep working.
func loadKey(inline, path string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	if !bytes.Contains(data, []byte("-----BEGIN")) {
		data = bytes.TrimRight(data, "\r\n")
	}
	return data, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Command gojwt signs, verifies and decodes compact JWTs from the shell.
//
//	gojwt sign   -alg HS256 -key secret.txt -sub alice -exp 1h -claims '{"role":"admin"}'
//	gojwt verify -alg HS256 -key secret.txt -aud api <token>
//	gojwt decode <token>
//
// Defaults come from GOJWT_* environment variables, optionally loaded from a
// .env file in the working directory. Flags override them.
package main

import (
	"fmt"
	"io"
	"os"
)

const usage = `usage: gojwt <command> [flags] [token]

commands:
  sign     sign a claim set read from -claims or stdin
  verify   verify a token and print its payload
  decode   print header and payload without verifying
`

func main() {
	environ, err := environFromOS(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "gojwt: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(os.Args[1:], environ, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, environ map[string]string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := loadConfig(environ)
	if err != nil {
		fmt.Fprintf(stderr, "gojwt: %v\n", err)
		return 2
	}
	logger, err := newLogger(cfg.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "gojwt: GOJWT_LOG_LEVEL: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	c := &command{cfg: cfg, logger: logger, stdin: stdin, stdout: stdout, stderr: stderr}
	switch args[0] {
	case "sign":
		return c.sign(args[1:])
	case "verify":
		return c.verify(args[1:])
	case "decode":
		return c.decode(args[1:])
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "gojwt: unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

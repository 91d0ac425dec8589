// Command formstate resolves JSON Schema and OpenAPI forms from the command
// line: computed defaults, id trees, the field tree, metaschema checks and
// interactive filling.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

const usage = `Usage: %s <command> [flags] <schema>

Commands:
  resolve   print the resolved form (schema, formData, idSchema, fields)
  defaults  print form data with defaults applied
  ids       print the id tree
  forms     list the forms a document offers
  check     validate the form schema against its metaschema
  fill      prompt for every field and print the collected form data

<schema> is a file path, an http(s) URL (with -http) or "-" for stdin.
Run "%s <command> -h" for command flags.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	name := filepath.Base(os.Args[0])
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprintf(stderr, usage, name, name)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "%s: unknown command %q\n\n", name, args[0])
		fmt.Fprintf(stderr, usage, name, name)
		return 2
	}

	env := &environment{stdin: stdin, stdout: stdout, stderr: stderr}
	cfg, err := parseFlags(args[0], args[1:], stderr)
	if err != nil {
		return 2
	}
	if err := cmd(ctx, env, cfg); err != nil {
		fmt.Fprintf(stderr, "%s %s: %v\n", name, args[0], err)
		return 1
	}
	return 0
}

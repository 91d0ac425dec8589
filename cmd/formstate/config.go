package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	formstate "github.com/goliatone/go-formstate"
	"github.com/goliatone/go-formstate/pkg/engine"
	"github.com/goliatone/go-formstate/pkg/orchestrator"
	"github.com/goliatone/go-formstate/pkg/schema"
)

type config struct {
	source      string
	format      string
	formID      string
	contentType string
	uiSchema    string
	uiDir       string
	formData    string
	preset      string
	output      string
	pretty      string
	allowHTTP   bool
	httpTimeout time.Duration
	idPrefix    string
	idSeparator string
	emptyObject string
	arrayFill   string
	verbose     bool
}

func parseFlags(command string, args []string, stderr io.Writer) (config, error) {
	var cfg config
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.format, "format", "", "force the input format (jsonschema, openapi)")
	fs.StringVar(&cfg.formID, "form", "", "form id (OpenAPI operation id or x-formstate form)")
	fs.StringVar(&cfg.contentType, "content-type", "", "OpenAPI request body media type")
	fs.StringVar(&cfg.uiSchema, "ui", "", "uiSchema file")
	fs.StringVar(&cfg.uiDir, "ui-dir", "", "directory of uiSchema files keyed by form id")
	fs.StringVar(&cfg.formData, "data", "", "form data file (JSON or YAML)")
	fs.StringVar(&cfg.preset, "preset", "", "preset file patching the schema before resolution")
	fs.StringVar(&cfg.output, "o", "", "write output to this file instead of stdout")
	fs.StringVar(&cfg.pretty, "pretty", "auto", "indent JSON output: auto, true or false")
	fs.BoolVar(&cfg.allowHTTP, "http", false, "allow fetching http(s) sources and refs")
	fs.DurationVar(&cfg.httpTimeout, "http-timeout", 10*time.Second, "timeout for http fetches")
	fs.StringVar(&cfg.idPrefix, "id-prefix", "", "id of the root field (default root)")
	fs.StringVar(&cfg.idSeparator, "id-separator", "", "id path separator (default _)")
	fs.StringVar(&cfg.emptyObject, "empty-objects", "", "object default policy: populateAllDefaults, populateRequiredDefaults, skipEmptyDefaults, skipDefaults")
	fs.StringVar(&cfg.arrayFill, "array-min-items", "", "array padding policy: all, requiredOnly, never")
	fs.BoolVar(&cfg.verbose, "v", false, "log debug diagnostics to stderr")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: formstate %s [flags] <schema>\n\n", command)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return config{}, errors.New("expected exactly one schema argument")
	}
	cfg.source = fs.Arg(0)
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(fs.Output(), "formstate %s: %v\n", command, err)
		return config{}, err
	}
	return cfg, nil
}

func (c config) validate() error {
	switch engine.EmptyObjectFields(c.emptyObject) {
	case "", engine.PopulateAllDefaults, engine.PopulateRequiredDefaults, engine.SkipEmptyDefaults, engine.SkipDefaults:
	default:
		return fmt.Errorf("unknown -empty-objects policy %q", c.emptyObject)
	}
	switch engine.ArrayPopulate(c.arrayFill) {
	case "", engine.PopulateAll, engine.PopulateRequiredOnly, engine.PopulateNever:
	default:
		return fmt.Errorf("unknown -array-min-items policy %q", c.arrayFill)
	}
	return nil
}

type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c config) logger(stderr io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

func (c config) engineOptions() []engine.Option {
	var options []engine.Option
	if c.idPrefix != "" {
		options = append(options, engine.WithIDPrefix(c.idPrefix))
	}
	if c.idSeparator != "" {
		options = append(options, engine.WithIDSeparator(c.idSeparator))
	}
	if c.emptyObject != "" {
		options = append(options, engine.WithEmptyObjectFields(engine.EmptyObjectFields(c.emptyObject)))
	}
	if c.arrayFill != "" {
		options = append(options, engine.WithArrayMinItems(engine.ArrayMinItems{Populate: engine.ArrayPopulate(c.arrayFill)}))
	}
	return options
}

// orchestrator wires the loader, adapters and optional uiSchema directory
// and preset from the flags.
func (c config) orchestrator(logger *slog.Logger) (*orchestrator.Orchestrator, error) {
	loaderOptions := []schema.LoaderOption{schema.WithFileSystem(os.DirFS("."))}
	if c.allowHTTP {
		loaderOptions = append(loaderOptions, schema.WithHTTPFallback(c.httpTimeout))
	}

	options := []orchestrator.Option{
		orchestrator.WithLoader(formstate.NewLoader(loaderOptions...)),
		orchestrator.WithLogger(logger),
		orchestrator.WithEngineOptions(c.engineOptions()...),
	}
	if c.uiDir != "" {
		options = append(options, orchestrator.WithUISchemaFS(os.DirFS(c.uiDir)))
	}
	if c.preset != "" {
		data, err := os.ReadFile(c.preset)
		if err != nil {
			return nil, fmt.Errorf("read preset: %w", err)
		}
		preset, err := orchestrator.NewPresetTransformer(data)
		if err != nil {
			return nil, err
		}
		options = append(options, orchestrator.WithSchemaTransformer(preset))
	}
	return formstate.NewOrchestrator(options...), nil
}

// request builds the orchestrator request; "-" reads the schema from stdin.
func (c config) request(stdin io.Reader) (orchestrator.Request, error) {
	req := orchestrator.Request{
		Format:      c.format,
		FormID:      c.formID,
		ContentType: c.contentType,
	}
	if strings.TrimSpace(c.source) == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return req, fmt.Errorf("read stdin: %w", err)
		}
		doc, err := schema.NewDocument(schema.SourceInline("stdin"), data)
		if err != nil {
			return req, err
		}
		req.Document = &doc
	} else {
		src, err := parseSource(c.source)
		if err != nil {
			return req, err
		}
		req.Source = src
	}
	if c.uiSchema != "" {
		req.UISchemaSource = schema.SourceFromFile(c.uiSchema)
	}
	if c.formData != "" {
		req.FormDataSource = schema.SourceFromFile(c.formData)
	}
	return req, nil
}

func parseSource(raw string) (src schema.Source, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("invalid source %q: %v", raw, r)
		}
	}()
	src = schema.ParseSource(raw)
	if src == nil {
		return nil, fmt.Errorf("invalid source %q", raw)
	}
	return src, nil
}

// indent reports whether JSON output should be indented.
func (c config) indent(out io.Writer) bool {
	switch strings.ToLower(strings.TrimSpace(c.pretty)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

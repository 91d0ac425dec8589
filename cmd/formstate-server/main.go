// Command formstate-server serves the resolution API over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	formstate "github.com/goliatone/go-formstate"
	"github.com/goliatone/go-formstate/pkg/httpapi"
	"github.com/goliatone/go-formstate/pkg/orchestrator"
	"github.com/goliatone/go-formstate/pkg/schema"
)

func main() {
	var (
		addrFlag      = flag.String("addr", ":8383", "HTTP listen address (PORT overrides the port)")
		rootFlag      = flag.String("root", "", "directory schema sources resolve against; enables source access")
		uiDirFlag     = flag.String("ui-dir", "", "directory of uiSchema files keyed by form id")
		allowHTTPFlag = flag.Bool("http", false, "allow fetching http(s) sources and refs")
		maxBodyFlag   = flag.Int64("max-body", 4<<20, "maximum request body size in bytes")
		jsonLogsFlag  = flag.Bool("json-logs", false, "emit JSON logs")
		shutdownGrace = flag.Duration("grace", 5*time.Second, "Shutdown grace period")
	)
	flag.Parse()

	logger := newLogger(*jsonLogsFlag)

	addr := *addrFlag
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		addr = ":" + port
	}

	var loaderOptions []schema.LoaderOption
	if *rootFlag != "" {
		loaderOptions = append(loaderOptions, schema.WithFileSystem(os.DirFS(*rootFlag)))
	}
	if *allowHTTPFlag {
		loaderOptions = append(loaderOptions, schema.WithHTTPFallback(10*time.Second))
	}

	options := []orchestrator.Option{
		orchestrator.WithLoader(rootedLoader(formstate.NewLoader(loaderOptions...))),
		orchestrator.WithLogger(logger),
	}
	if *uiDirFlag != "" {
		options = append(options, orchestrator.WithUISchemaFS(os.DirFS(*uiDirFlag)))
	}

	api := httpapi.New(formstate.NewOrchestrator(options...),
		httpapi.WithLogger(logger),
		httpapi.WithSourceAccess(*rootFlag != "" || *allowHTTPFlag),
		httpapi.WithMaxBodyBytes(*maxBodyFlag),
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("listening", "addr", addr, "root", *rootFlag, "http_sources", *allowHTTPFlag)

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errChan:
		log.Fatalf("listen: %v", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func newLogger(jsonLogs bool) *slog.Logger {
	if jsonLogs {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// rootedLoader maps file sources onto the fs.FS root so request bodies can
// only reach documents below it.
func rootedLoader(next schema.Loader) schema.Loader {
	return schema.LoaderFunc(func(ctx context.Context, src schema.Source) (schema.Document, error) {
		if src != nil && src.Kind() == schema.SourceKindFile {
			src = schema.SourceFromFS(src.Location())
		}
		return next.Load(ctx, src)
	})
}

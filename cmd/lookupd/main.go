// Command lookupd serves a demo grid of contacts whose account and vendor
// columns are lookup cells backed by a sqlite store.
//
// Environment:
//
//	PORT        listen port (default 8080)
//	LOOKUP_DB   sqlite DSN (default file:lookupd.db)
//	LOOKUP_KEY  props signing key; a random key is used when empty
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pthm/hxlookup/lib/catalog"
	"github.com/pthm/hxlookup/lib/schema"
	"github.com/pthm/hxlookup/provider/openapimeta"
	"github.com/pthm/hxlookup/provider/sqlprovider"
)

func main() {
	var (
		lookupsPath = flag.String("lookups", "", "lookup definitions file, watched for changes (default: built-in)")
		openapiPath = flag.String("openapi", "", "OpenAPI document overriding entity metadata")
		debug       = flag.Bool("debug", false, "debug logging")
		seed        = flag.Bool("seed", true, "seed demo records into an empty database")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, *lookupsPath, *openapiPath, *seed); err != nil {
		log.Error("lookupd failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, lookupsPath, openapiPath string, seed bool) error {
	dsn := os.Getenv("LOOKUP_DB")
	if dsn == "" {
		dsn = "file:lookupd.db"
	}
	store, err := sqlprovider.Open(ctx, dsn, sqlprovider.WithLogger(log))
	if err != nil {
		return err
	}
	defer store.Close()
	if seed {
		if err := store.SeedDemo(ctx); err != nil {
			return err
		}
	}

	cat, err := loadCatalog(lookupsPath)
	if err != nil {
		return err
	}
	if lookupsPath != "" {
		w, err := catalog.Watch(lookupsPath, cat,
			catalog.WithWatchLogger(log),
			catalog.OnReload(func(err error) {
				if err == nil {
					log.Info("lookup definitions reloaded", "lookups", cat.Names())
				}
			}),
		)
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	var meta schema.MetadataProvider = store
	if openapiPath != "" {
		p, err := openapimeta.LoadFile(ctx, openapiPath, openapimeta.WithFallback(store))
		if err != nil {
			return err
		}
		log.Info("entity metadata from OpenAPI", "path", openapiPath, "entities", p.Entities())
		meta = p
	}

	app := newApp(store, meta, cat, signingKey(log), log)
	defer app.Close()
	go app.lookup.Pool().Run(ctx, time.Minute)

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting server", "addr", srv.Addr, "lookups", cat.Names())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// signingKey reads LOOKUP_KEY. Without one, props signed by a previous run
// are rejected after a restart.
func signingKey(log *slog.Logger) []byte {
	if k := os.Getenv("LOOKUP_KEY"); k != "" {
		return []byte(k)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("lookupd: failed to generate random key: %v", err))
	}
	log.Warn("LOOKUP_KEY not set, using a random key")
	return key
}

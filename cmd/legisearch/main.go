// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/legisearch/ai"
	"github.com/poiesic/legisearch/ai/openai"
	"github.com/poiesic/legisearch/embedding"
	"github.com/poiesic/legisearch/ingestion"
	"github.com/poiesic/legisearch/query"
	"github.com/poiesic/legisearch/retrieval"
	"github.com/poiesic/legisearch/storage"
	"github.com/poiesic/legisearch/storage/postgres"
	"github.com/poiesic/legisearch/toolserver"
	"github.com/poiesic/legisearch/voterdata"
)

func main() {
	app := &cli.App{
		Name:  "legisearch",
		Usage: "Legislative corpus ingestion, embedding and retrieval tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres connection string",
				EnvVars: []string{"LEGISEARCH_DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "db-schema",
				Usage:   "Postgres schema holding all tables",
				EnvVars: []string{"LEGISEARCH_SCHEMA"},
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "init-db",
				Usage:  "Create the fixed tables and indexes",
				Action: initDBCommand,
			},
			{
				Name:   "import",
				Usage:  "Import sponsors, bills and votes from a corpus directory",
				Action: importCommand,
				Flags: append(aiFlags(),
					&cli.StringFlag{
						Name:     "root",
						Aliases:  []string{"r"},
						Usage:    "Corpus root directory (root/<region>/<session>/<category>/*.json)",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "skip-embed",
						Usage: "Skip the bill embedding stage",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of bills embedded per batch",
						Value: embedding.DefaultConfig().BatchSize,
					},
				),
			},
			{
				Name:   "import-voter",
				Usage:  "Import pipe-delimited voter extracts with inferred schemas",
				Action: importVoterCommand,
				Flags: append(aiFlags(),
					&cli.StringFlag{
						Name:     "dir",
						Aliases:  []string{"d"},
						Usage:    "Directory of .csv voter extract files",
						Required: true,
					},
				),
			},
			{
				Name:   "embed",
				Usage:  "Backfill missing bill embeddings and rebuild the search index",
				Action: embedCommand,
				Flags:  append(aiFlags(), backfillFlags(embedding.DefaultConfig())...),
			},
			{
				Name:   "embed-values",
				Usage:  "Backfill voter row embeddings and rebuild their indexes",
				Action: embedValuesCommand,
				Flags:  append(aiFlags(), backfillFlags(embedding.DefaultValueConfig())...),
			},
			{
				Name:   "serve",
				Usage:  "Serve the agent tool endpoints over HTTP",
				Action: serveCommand,
				Flags: append(aiFlags(),
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
						Value: ":8080",
					},
					&cli.IntFlag{
						Name:    "token-budget",
						Usage:   "Token budget for combined query results",
						Value:   query.DefaultTokenBudget,
						EnvVars: []string{"LEGISEARCH_TOKEN_BUDGET"},
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"LEGISEARCH_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "all-minilm",
			EnvVars: []string{"LEGISEARCH_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "classifier-host",
			Usage:   "Classifier service host URL (defaults to embedding-host)",
			EnvVars: []string{"LEGISEARCH_CLASSIFIER_HOST"},
		},
		&cli.StringFlag{
			Name:    "classifier-model",
			Usage:   "Classifier model name",
			Value:   "qwen2.5:3b",
			EnvVars: []string{"LEGISEARCH_CLASSIFIER_MODEL"},
		},
	}
}

func backfillFlags(defaults *embedding.Config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of records to process in each batch",
			Value: defaults.BatchSize,
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Report progress every N records",
			Value: defaults.ReportInterval,
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum retry attempts for index rebuilds",
			Value: defaults.MaxRetries,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: defaults.RetryDelay,
		},
	}
}

// setup loads .env if present and configures the default logger.
func setup(c *cli.Context) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.String("log-level"))
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func openBackend(c *cli.Context) (storage.Backend, error) {
	databaseURL := c.String("database-url")
	if databaseURL == "" {
		return nil, errors.New("database-url is required (flag or LEGISEARCH_DATABASE_URL)")
	}
	schema := c.String("db-schema")
	if schema == "" {
		return nil, errors.New("db-schema is required (flag or LEGISEARCH_SCHEMA)")
	}
	return postgres.NewBackend(c.Context, postgres.Config{
		DatabaseURL: databaseURL,
		Schema:      schema,
	})
}

func aiConfig(c *cli.Context) *ai.Config {
	classifierHost := c.String("classifier-host")
	if classifierHost == "" {
		classifierHost = c.String("embedding-host")
	}
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithClassifierHost(classifierHost),
		ai.WithClassifierModel(c.String("classifier-model")),
	)
}

func initDBCommand(c *cli.Context) error {
	backend, err := openBackend(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := backend.InitSchema(c.Context); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	fmt.Fprintln(os.Stderr, "schema initialized")
	return nil
}

func importCommand(c *cli.Context) error {
	backend, err := openBackend(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	provider, err := openai.NewProvider(aiConfig(c))
	if err != nil {
		return fmt.Errorf("creating AI provider: %w", err)
	}
	defer provider.Close()

	importer, err := ingestion.NewImporter(backend, provider.Classifier())
	if err != nil {
		return err
	}
	defer importer.Release()

	var backfiller ingestion.Backfiller
	if !c.Bool("skip-embed") {
		config := embedding.DefaultConfig()
		config.BatchSize = c.Int("batch-size")
		processor, err := embedding.NewProcessor(backend, provider.Embedder(), config, os.Stderr)
		if err != nil {
			return err
		}
		backfiller = processor
	}

	pipeline, err := ingestion.NewPipeline(importer, backfiller)
	if err != nil {
		return err
	}

	sponsors, bills, votes, err := pipeline.Run(c.Context, c.String("root"))
	printSummary("sponsors", sponsors)
	printSummary("bills", bills)
	printSummary("votes", votes)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}

func printSummary(name string, summary *ingestion.RunSummary) {
	if summary == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %d completed, %d skipped, %d failed\n",
		name, summary.Completed(), summary.Skipped(), summary.Failed())
}

func importVoterCommand(c *cli.Context) error {
	backend, err := openBackend(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	provider, err := openai.NewProvider(aiConfig(c))
	if err != nil {
		return fmt.Errorf("creating AI provider: %w", err)
	}
	defer provider.Close()

	importer, err := voterdata.NewImporter(backend, provider.SchemaInferrer(), provider.Embedder(), nil)
	if err != nil {
		return err
	}
	return importer.ImportDirectory(c.Context, c.String("dir"))
}

func embedCommand(c *cli.Context) error {
	backend, err := openBackend(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	embedder, err := openai.NewEmbedder(aiConfig(c))
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	processor, err := embedding.NewProcessor(backend, embedder, backfillConfig(c, embedding.DefaultConfig()), os.Stderr)
	if err != nil {
		return err
	}
	return processor.Run(c.Context)
}

func embedValuesCommand(c *cli.Context) error {
	backend, err := openBackend(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	embedder, err := openai.NewEmbedder(aiConfig(c))
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	processor, err := embedding.NewValueProcessor(backend, embedder, backfillConfig(c, embedding.DefaultValueConfig()), os.Stderr)
	if err != nil {
		return err
	}
	return processor.Run(c.Context)
}

func backfillConfig(c *cli.Context, defaults *embedding.Config) *embedding.Config {
	defaults.BatchSize = c.Int("batch-size")
	defaults.ReportInterval = c.Int("report-interval")
	defaults.MaxRetries = c.Int("max-retries")
	defaults.RetryDelay = c.Duration("retry-delay")
	return defaults
}

func serveCommand(c *cli.Context) error {
	backend, err := openBackend(c)
	if err != nil {
		return err
	}
	defer backend.Close()

	embedder, err := openai.NewEmbedder(aiConfig(c))
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	retriever, err := retrieval.NewRetriever(backend, embedder, nil)
	if err != nil {
		return err
	}
	gate, err := query.NewGate(backend, query.WithBudget(c.Int("token-budget")))
	if err != nil {
		return err
	}
	server, err := toolserver.NewServer(retriever, gate)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(c.String("addr"))
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/app"
	"github.com/kailas-cloud/retrievex/internal/config"
	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
	"github.com/kailas-cloud/retrievex/internal/domain/search/mode"
	"github.com/kailas-cloud/retrievex/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/retrievex/internal/logger"
	"github.com/kailas-cloud/retrievex/internal/usecase/ingest"
)

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("env"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// withApp loads configuration, connects to the store and runs fn on the wired stack.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return runApp(c, cfg, fn)
}

func runApp(c *cli.Context, cfg config.Config, fn func(ctx context.Context, a *app.App) error) error {
	logger, err := logpkg.NewLogger(c.String("env"), c.String("log-level"))
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := app.OpenStore(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := c.Context
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	a, err := app.New(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Debug("retrievexctl ready", zap.String("command", c.Command.FullName()))
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func indexEnsureCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		created, err := a.Index.Ensure(ctx)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, map[string]any{"index": a.Index.Layout().IndexName(), "created": created})
	})
}

func indexInfoCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		info, err := a.Index.Info(ctx)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, map[string]any{
			"name":        info.Name,
			"dimensions":  info.Dimensions,
			"documents":   info.Documents,
			"text_search": info.TextSearch,
		})
	})
}

func indexDropCommand(c *cli.Context) error {
	if !c.Bool("yes") {
		return errors.New("refusing to drop the index without --yes")
	}
	return withApp(c, func(ctx context.Context, a *app.App) error {
		if err := a.Index.Drop(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintf(c.App.Writer, "dropped %s\n", a.Index.Layout().IndexName())
		return err
	})
}

func ingestCommand(c *cli.Context) error {
	texts, err := collectTexts(c)
	if err != nil {
		return err
	}
	meta, err := parseMeta(c.StringSlice("meta"))
	if err != nil {
		return err
	}

	items := make([]ingest.Item, len(texts))
	for i, t := range texts {
		items[i] = ingest.Item{Text: t, Metadata: meta}
	}

	return withApp(c, func(ctx context.Context, a *app.App) error {
		docs, err := a.Ingest.IngestBatch(ctx, items)
		if err != nil {
			return err
		}
		ids := make([]string, len(docs))
		for i := range docs {
			ids[i] = docs[i].ID()
		}
		return printJSON(c.App.Writer, map[string]any{"inserted_count": len(ids), "ids": ids})
	})
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("search: query argument is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	req, err := request.New(query, mode.Mode(c.String("mode")), filter.Expression{}, c.Int("top-k"), cfg.Search.MaxTopK, nil)
	if err != nil {
		return err
	}

	return runApp(c, cfg, func(ctx context.Context, a *app.App) error {
		results, err := a.Search.Search(ctx, &req)
		if err != nil {
			return err
		}
		out := make([]map[string]any, 0, len(results))
		for i := range results {
			out = append(out, map[string]any{
				"id":       results[i].ID(),
				"score":    results[i].Score(),
				"text":     results[i].Text(),
				"metadata": results[i].Metadata(),
			})
		}
		return printJSON(c.App.Writer, map[string]any{"mode": req.Mode(), "results": out})
	})
}

func getCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("get: id argument is required")
	}
	return withApp(c, func(ctx context.Context, a *app.App) error {
		doc, err := a.Documents.Get(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, map[string]any{"id": doc.ID(), "text": doc.Text(), "metadata": doc.Metadata()})
	})
}

func deleteCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("delete: id argument is required")
	}
	return withApp(c, func(ctx context.Context, a *app.App) error {
		if err := a.Documents.Delete(ctx, id); err != nil {
			return err
		}
		_, err := fmt.Fprintf(c.App.Writer, "deleted %s\n", id)
		return err
	})
}

func healthCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		report := a.Health.Check(ctx)
		if err := printJSON(c.App.Writer, report); err != nil {
			return err
		}
		if report.Status != "ok" {
			return cli.Exit("unhealthy", 1)
		}
		return nil
	})
}

// collectTexts returns the positional texts, or the non-blank lines of --file.
func collectTexts(c *cli.Context) ([]string, error) {
	path := c.String("file")
	if path == "" {
		if c.NArg() == 0 {
			return nil, errors.New("ingest: pass texts as arguments or use --file")
		}
		return c.Args().Slice(), nil
	}
	if c.NArg() > 0 {
		return nil, errors.New("ingest: use either --file or arguments, not both")
	}

	var r io.Reader = c.App.Reader
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	return readLines(r)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read texts: %w", err)
	}
	if len(lines) == 0 {
		return nil, errors.New("ingest: no texts found")
	}
	return lines, nil
}

// parseMeta turns key=value pairs into metadata. Numbers and booleans are typed.
func parseMeta(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("metadata %q: expected key=value", p)
		}
		switch {
		case v == "true" || v == "false":
			meta[k] = v == "true"
		default:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				meta[k] = f
			} else {
				meta[k] = v
			}
		}
	}
	return meta, nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/lingoreview/internal/config"
	"github.com/conorfennell/lingoreview/internal/curriculum"
	"github.com/conorfennell/lingoreview/internal/deck"
	"github.com/conorfennell/lingoreview/internal/domain"
	"github.com/conorfennell/lingoreview/internal/gitsource"
	"github.com/conorfennell/lingoreview/internal/storage"
	"github.com/conorfennell/lingoreview/internal/study"
	"github.com/conorfennell/lingoreview/internal/sync"
	"github.com/conorfennell/lingoreview/internal/web"
)

const usage = `usage: lingoreview <command> [flags]

commands:
  serve     run the HTTP API
  rate      record a rating: --item ID --rating weak|improving|strong|master_now
  deck      print the next study deck
  stats     print progress, or one lesson with --lesson
  migrate   copy this device's history into --learner
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "lingoreview: %v\n", err)
		os.Exit(1)
	}
}

// flags holds the per-command options that are not configuration keys.
type flags struct {
	learner string
	item    string
	rating  string
	lesson  string
	kind    string
}

func run(ctx context.Context, cmd string, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.Flags(fs)

	var f flags
	fs.StringVar(&f.learner, "learner", "", "learner id; the device scope is used when empty")
	fs.StringVar(&f.item, "item", "", "vocabulary item id")
	fs.StringVar(&f.rating, "rating", "", "rating to record")
	fs.StringVar(&f.lesson, "lesson", "", "restrict to one lesson")
	fs.StringVar(&f.kind, "type", "", "restrict to one item type (word, phrase)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch cmd {
	case "serve", "rate", "deck", "stats", "migrate":
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	log := cfg.Log.Logger(stderr)

	needsRemote := cmd == "serve" || cmd == "migrate" || f.learner != ""
	a, err := openApp(ctx, cfg, log, needsRemote)
	if err != nil {
		return err
	}
	defer a.close()

	scope := a.local.Scope()
	if f.learner != "" {
		scope = domain.LearnerScope(f.learner)
	}

	switch cmd {
	case "serve":
		return serve(ctx, cfg.HTTP.Addr, web.NewServer(a.engine, a.router, log), log)
	case "rate":
		state, err := a.engine.Rate(ctx, study.RatingEvent{Scope: scope, ItemID: f.item, Rating: f.rating})
		if err != nil {
			return err
		}
		return printJSON(stdout, state)
	case "deck":
		d, err := a.engine.Deck(ctx, scope, study.DeckRequest{LessonID: f.lesson, Type: domain.ItemType(f.kind)})
		if err != nil {
			return err
		}
		return printJSON(stdout, d)
	case "stats":
		if f.lesson != "" {
			report, err := a.engine.Lesson(ctx, scope, f.lesson)
			if err != nil {
				return err
			}
			return printJSON(stdout, report)
		}
		report, err := a.engine.Progress(ctx, scope)
		if err != nil {
			return err
		}
		return printJSON(stdout, report)
	default: // migrate
		if f.learner == "" {
			return errors.New("migrate requires --learner")
		}
		res, err := sync.Promote(ctx, log, a.local, a.remote, a.local.Scope(), scope)
		if err != nil {
			return err
		}
		return printJSON(stdout, res)
	}
}

type app struct {
	local  *storage.LocalStore
	remote *storage.SQLStore
	router storage.Router
	engine *study.Engine
}

func openApp(ctx context.Context, cfg *config.Config, log *slog.Logger, withRemote bool) (*app, error) {
	cur, err := loadCurriculum(ctx, cfg.Curriculum, log)
	if err != nil {
		return nil, err
	}

	local, err := storage.OpenLocal(ctx, storage.NewFileBucket(cfg.Local.Path), cfg.Local.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open device progress: %w", err)
	}
	a := &app{local: local, router: storage.Router{Device: local}}

	if withRemote {
		remote, err := storage.OpenSQL(ctx, cfg.Remote.Driver, cfg.Remote.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open remote progress: %w", err)
		}
		a.remote = remote
		a.router.Learner = remote
	}

	a.engine = study.New(a.router, cur,
		study.WithLogger(log),
		study.WithTimeout(cfg.Remote.Timeout),
		study.WithDeckOptions(deck.Options{FreshLimit: cfg.Deck.FreshLimit, MaxSize: cfg.Deck.MaxSize}),
	)
	log.Debug("opened progress stores", "device", local.Scope().ID, "remote", withRemote)
	return a, nil
}

func (a *app) close() {
	if a.remote != nil {
		a.remote.Close()
	}
}

func loadCurriculum(ctx context.Context, cfg config.CurriculumConfig, log *slog.Logger) (*curriculum.Curriculum, error) {
	path := cfg.Path
	if cfg.RepoURL != "" {
		dir, err := gitsource.LocalPath(cfg.CacheDir, cfg.RepoURL)
		if err != nil {
			return nil, err
		}
		if err := gitsource.Sync(ctx, log, cfg.RepoURL, dir); err != nil {
			return nil, err
		}
		path = filepath.Join(dir, cfg.Path)
	}

	cur, err := curriculum.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load curriculum %s: %w", path, err)
	}
	log.Debug("loaded curriculum", "path", path, "lessons", len(cur.Lessons), "items", len(cur.Items))
	return cur, nil
}

func serve(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

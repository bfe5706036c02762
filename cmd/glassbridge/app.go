package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/DaanHessen/glass-bridge/internal/engine"
	"github.com/DaanHessen/glass-bridge/internal/narration"
	"github.com/DaanHessen/glass-bridge/internal/steplog"
	"github.com/DaanHessen/glass-bridge/internal/store"
	"github.com/DaanHessen/glass-bridge/internal/util"
)

// app is one wired game: loop, narration queue, controller and the
// optional audio cache database.
type app struct {
	cfg   util.Config
	log   *slog.Logger
	seed  engine.Seed
	loop  *engine.Loop
	queue *narration.Queue
	game  *engine.Game
	db    *store.DB
	logF  *os.File
}

// newApp wires everything but does not start the loop. logOut is used when
// no log file is configured.
func newApp(ctx context.Context, cfg util.Config, logOut io.Writer) (*app, error) {
	a := &app{cfg: cfg}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errors.Wrap(err, "open log file")
		}
		a.logF, logOut = f, f
	}
	logger, err := util.NewLogger(cfg.LogLevel, logOut)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.log = logger

	seedText := cfg.SeedText
	if seedText == "" {
		if seedText, err = generateSeed(); err != nil {
			a.Close()
			return nil, errors.Wrap(err, "generate seed")
		}
	}
	if a.seed, err = engine.NewSeed(seedText); err != nil {
		a.Close()
		return nil, err
	}
	script, err := util.LoadScript(cfg.ScriptPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.loop = engine.NewLoop()
	a.queue = narration.NewQueue(a.loop, a.synthesizer(ctx),
		narration.WithFallback(narration.CommandSpeaker{Command: cfg.SpeakCommand}),
		narration.WithPlayer(&narration.CommandPlayer{Command: cfg.PlayCommand}),
		narration.WithLogger(logger.With("component", "narration")),
		narration.WithWarningHandler(func(w narration.Warning) {
			logger.Warn("narration warning", "text", w.Request.Text, "retryable", w.Retryable, "err", w.Err)
		}),
	)
	a.queue.SetMuted(cfg.Muted)
	a.game = engine.NewGame(engine.GameConfig{
		TotalPairs: cfg.TotalPairs,
		Seed:       a.seed,
		Script:     script,
	}, a.queue, engine.LoopScheduler{Loop: a.loop}, logger.With("component", "game"))

	if cfg.StepLog != "" {
		log, err := steplog.LoadFile(cfg.StepLog)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.reportIssues(log)
		// the loop is not running yet, so the game is still ours
		a.game.LoadSteps(log.Steps)
	}
	return a, nil
}

// synthesizer returns nil when no API key is set so every line goes to
// the local speaker.
func (a *app) synthesizer(ctx context.Context) narration.Synthesizer {
	if a.cfg.SpeechAPIKey == "" {
		a.log.Info("no speech API key, using local speech only")
		return nil
	}
	remote := narration.NewHTTPSynthesizer(a.cfg.SpeechURL, a.cfg.SpeechAPIKey)
	var cache narration.AudioCache = narration.NewMemoryCache()
	if a.cfg.DSN != "" {
		db, err := openCache(ctx, a.cfg)
		if err != nil {
			a.log.Warn("audio cache database unavailable, caching in memory", "err", err)
		} else {
			a.db = db
			cache = store.NewAudioCacheRepo(db)
		}
	}
	return narration.NewCachingSynthesizer(remote, cache, a.log.With("component", "audio_cache"))
}

func openCache(ctx context.Context, cfg util.Config) (*store.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	mig, err := store.NewMigrator(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := mig.Up(ctx); err != nil && err != store.ErrNoChange {
		return nil, errors.Wrap(err, "migrate")
	}
	return store.Open(ctx, cfg)
}

func (a *app) reportIssues(log steplog.Log) {
	for _, is := range log.Issues {
		a.log.Warn("step log entry will be skipped", "index", is.Index, "err", is.Err)
	}
}

func (a *app) host() engine.Host { return engine.Host{Loop: a.loop, Game: a.game} }

// watchSteps reloads the step log into the game until ctx is done.
func (a *app) watchSteps(ctx context.Context) error {
	if a.cfg.StepLog == "" {
		<-ctx.Done()
		return nil
	}
	return steplog.Watch(ctx, a.cfg.StepLog, a.log.With("component", "steplog"), func(log steplog.Log, err error) {
		if err != nil {
			a.log.Warn("step log reload failed, keeping the previous log", "err", err)
			return
		}
		a.reportIssues(log)
		a.loop.Post(func() { a.game.LoadSteps(log.Steps) })
	})
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.logF != nil {
		_ = a.logF.Close()
	}
}

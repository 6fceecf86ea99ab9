package main

import (
	"context"
	"fmt"

	"github.com/jonathan/apply-agent/internal/answers"
	"github.com/jonathan/apply-agent/internal/behavior"
	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/config"
	"github.com/jonathan/apply-agent/internal/db"
	"github.com/jonathan/apply-agent/internal/engine"
	"github.com/jonathan/apply-agent/internal/llm"
	"github.com/jonathan/apply-agent/internal/rendering"
	"github.com/jonathan/apply-agent/internal/retry"
	"github.com/jonathan/apply-agent/internal/session"
	"github.com/jonathan/apply-agent/internal/site"
	"github.com/jonathan/apply-agent/internal/types"
	"go.uber.org/zap"
)

// app owns the long-lived collaborators built from one Config
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	sessions *session.FileStore
	history  db.Store
	bank     *answers.Bank
	llm      llm.Client
	chrome   *browser.Chrome
	pacer    *behavior.Pacer
}

// newSessionStore builds the cookie store, sealed when a passphrase is set.
func newSessionStore(cfg *config.Config, logger *zap.Logger) *session.FileStore {
	opts := []session.Option{session.WithLogger(logger)}
	if cfg.SessionPassphrase != "" {
		opts = append(opts, session.WithSealer(session.NewSealer(cfg.SessionPassphrase)))
	}
	return session.NewFileStore(cfg.SessionFile, opts...)
}

// newApp opens everything except the browser. withHistory is false for
// commands that never record outcomes.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, withHistory bool) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		sessions: newSessionStore(cfg, logger),
	}

	if withHistory {
		history, err := db.Open(ctx, cfg.DatabaseURL, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		a.history = history
	}

	if cfg.AnswersFile != "" {
		bank, err := answers.LoadBank(cfg.AnswersFile)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.bank = bank
	} else {
		a.bank = answers.NewBank("")
	}

	if cfg.TailoringEnabled {
		if cfg.GeminiAPIKey == "" {
			logger.Warn("tailoring enabled without " + config.EnvGeminiAPIKey + ", LLM answers disabled")
		} else {
			client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
			if err != nil {
				a.Close()
				return nil, fmt.Errorf("failed to create LLM client: %w", err)
			}
			a.llm = client
		}
	}

	rng := behavior.NewRand()
	a.pacer = behavior.NewPacer(behavior.Generate(rng, cfg.Bounds()), rng, cfg.PacerOptions())
	return a, nil
}

// launch starts Chrome. The browser outlives command cancellation so the
// shutdown grace window can finish the current step.
func (a *app) launch() error {
	chrome, err := browser.Launch(context.Background(), a.cfg.BrowserOptions(), a.logger)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	a.chrome = chrome
	return nil
}

// answerer chains bank, keyword defaults and, when a client exists, the LLM.
func (a *app) answerer() *answers.Chain {
	opts := []answers.ChainOption{answers.WithChainLogger(a.logger)}
	if a.cfg.LearnAnswers {
		opts = append(opts, answers.WithLearning(a.bank))
	}
	chain := answers.NewChain(opts...).
		Add(a.bank, false).
		Add(a.cfg.DefaultAnswers(), false)
	if a.llm != nil {
		chain.Add(answers.NewTailor(a.llm, a.bank.Facts, a.cfg.MinConfidence), true)
	}
	return chain
}

// renderer returns nil when no template is configured.
func (a *app) renderer() (*rendering.Renderer, error) {
	if a.cfg.ResumeTemplate == "" {
		return nil, nil
	}
	opts := rendering.Options{
		TemplatePath: a.cfg.ResumeTemplate,
		OutputDir:    a.cfg.OutputDir,
		Compiler:     a.cfg.ResumeCompiler,
		Profile:      a.bank.Profile(),
		Logger:       a.logger,
	}
	if a.llm != nil {
		opts.Summary = rendering.LLMSummary(a.llm, a.bank.Facts)
	}
	return rendering.NewRenderer(opts)
}

// engineConfig assembles the orchestrator. Launch must have succeeded.
func (a *app) engineConfig(credential types.SessionCredential, manual engine.ManualLogin) (engine.Config, error) {
	selectors, err := site.LoadSelectors(a.cfg.SelectorsFile)
	if err != nil {
		return engine.Config{}, err
	}

	cfg := engine.Config{
		Browser:     a.chrome,
		Sessions:    a.sessions,
		History:     a.history,
		Credential:  credential,
		Selectors:   selectors,
		URLs:        site.DefaultURLs(a.cfg.BaseURL),
		Pacer:       a.pacer,
		Runner:      retry.NewRunner(a.logger),
		Answers:     a.answerer(),
		Listing:     a.cfg.ListingOptions(),
		Apply:       a.cfg.ApplyOptions(),
		Monitor:     a.cfg.MonitorOptions(),
		Options:     a.cfg.EngineOptions(),
		ManualLogin: manual,
		Force: func() {
			_ = a.chrome.Close()
		},
		Logger: a.logger,
	}

	r, err := a.renderer()
	if err != nil {
		return engine.Config{}, err
	}
	if r != nil {
		cfg.Renderer = r
	}
	return cfg, nil
}

// Close releases everything newApp and launch opened and writes learned answers.
func (a *app) Close() {
	if a.chrome != nil {
		_ = a.chrome.Close()
	}
	if a.cfg.LearnAnswers && a.bank != nil && a.cfg.AnswersFile != "" {
		if err := a.bank.Save(); err != nil {
			a.logger.Warn("failed to save answer bank", zap.Error(err))
		}
	}
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("failed to close history store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

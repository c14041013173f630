package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/funnyzak/reqloop/internal/config"
	"github.com/funnyzak/reqloop/internal/curlparse"
	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/internal/loop"
	"github.com/funnyzak/reqloop/internal/printer"
	"github.com/funnyzak/reqloop/internal/runner"
	"github.com/funnyzak/reqloop/internal/session"
	"github.com/funnyzak/reqloop/internal/storage"
	"github.com/funnyzak/reqloop/pkg/i18n"
)

// app bundles the collaborators shared by every command.
type app struct {
	cfg        *config.Config
	log        logger.Logger
	store      storage.Store
	translator *i18n.Translator
	printer    printer.Printer
	parser     *curlparse.Service
	runner     *runner.Runner
	loops      *loop.Executor
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)

	translator, err := i18n.NewTranslator(cfg.Output.Locale)
	if err != nil {
		log.Warn("Locale unavailable, falling back to English", "locale", cfg.Output.Locale, "error", err)
		if translator, err = i18n.NewTranslator("en"); err != nil {
			return nil, fmt.Errorf("load messages: %w", err)
		}
		cfg.Output.Locale = "en"
	}

	var store storage.Store
	if cfg.Storage.Enable {
		store, err = storage.New(&cfg.Storage, log)
		if err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
	}

	r := runner.New(cfg.Runner, log)
	return &app{
		cfg:        cfg,
		log:        log,
		store:      store,
		translator: translator,
		printer:    printer.New(cfg.Output.Mode, log, &cfg.Output, translator, cfg.Output.Locale),
		parser:     curlparse.NewService(log),
		runner:     r,
		loops:      loop.NewExecutor(r, cfg.Loop.MaxRuns, log),
	}, nil
}

// newSession builds a session wired to the shared collaborators.
func (a *app) newSession() *session.Session {
	deps := session.Deps{
		Parser:       a.parser,
		Runner:       a.runner,
		Loops:        a.loops,
		Writer:       session.FileWriter{Dir: a.cfg.Output.Dir},
		Translator:   a.translator,
		Logger:       a.log,
		Locale:       a.cfg.Output.Locale,
		DefaultDelay: a.cfg.Loop.DefaultDelay,
	}
	if a.store != nil {
		deps.Recorder = a.store
	}
	return session.New(deps)
}

func (a *app) requireStore() (storage.Store, error) {
	if a.store == nil {
		return nil, fmt.Errorf("run history is disabled (storage.enable=false)")
	}
	return a.store, nil
}

func (a *app) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("Failed to close run history", "error", err)
	}
}

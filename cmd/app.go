package cmd

import (
	"fmt"

	"github.com/mj1618/desktop-escalate/internal/clock"
	"github.com/mj1618/desktop-escalate/internal/config"
	"github.com/mj1618/desktop-escalate/internal/escalation"
	"github.com/mj1618/desktop-escalate/internal/flow"
	"github.com/mj1618/desktop-escalate/internal/logging"
	"github.com/mj1618/desktop-escalate/internal/metrics"
	"github.com/mj1618/desktop-escalate/internal/ocr"
	"github.com/mj1618/desktop-escalate/internal/output"
	"github.com/mj1618/desktop-escalate/internal/platform"
	"github.com/mj1618/desktop-escalate/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is everything a command needs to drive the target application.
type app struct {
	cfg        config.Config
	log        *zap.Logger
	metrics    *metrics.Recorder
	dispatcher *server.Dispatcher
}

// loadConfig reads --config and applies --log-level.
func loadConfig() (config.Config, error) {
	path, _ := rootCmd.PersistentFlags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}

// newApp wires the platform, OCR, engine and escalation layers. Missing
// platform backends surface as failed actions, not here, so probing still
// works.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	provider, err := platform.NewProvider()
	if err != nil {
		return nil, err
	}

	svc, err := ocr.NewService(ocr.TesseractLoader, cfg.OCR, log)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	svc.WarmUp()

	rec := metrics.New()
	clk := clock.Real{}
	newEngine := func() *flow.Engine { return flow.New(provider, svc, clk, cfg, log) }
	ctrl := escalation.New(func() escalation.Runner { return newEngine() }, clk, cfg.Escalation, rec, log)

	return &app{
		cfg:        cfg,
		log:        log,
		metrics:    rec,
		dispatcher: server.New(newEngine, ctrl, log),
	}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

// runAction executes one protocol action and prints its response. A failed
// action exits non-zero after the response is printed.
func runAction(cmd *cobra.Command, action string, params map[string]interface{}) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	resp := a.dispatcher.Handle(cmd.Context(), server.Request{Action: action, Params: params})
	if err := output.Print(resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s failed", action)
	}
	return nil
}

// targetParams collects the conversation flags shared by several commands.
func targetParams(cmd *cobra.Command) map[string]interface{} {
	params := map[string]interface{}{}
	for flag, key := range map[string]string{
		"project":      "project",
		"conversation": "conversation",
		"message":      "message",
		"run-id":       "run_id",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			params[key] = f.Value.String()
		}
	}
	if f := cmd.Flags().Lookup("timeout-ms"); f != nil && f.Changed {
		ms, _ := cmd.Flags().GetInt("timeout-ms")
		params["timeout_ms"] = ms
	}
	return params
}

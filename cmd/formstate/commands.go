package main

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-formstate/pkg/engine"
	"github.com/goliatone/go-formstate/pkg/orchestrator"
	"github.com/goliatone/go-formstate/pkg/prompt"
)

type command func(ctx context.Context, env *environment, cfg config) error

var commands = map[string]command{
	"resolve":  resolveCommand,
	"defaults": defaultsCommand,
	"ids":      idsCommand,
	"forms":    formsCommand,
	"check":    checkCommand,
	"fill":     fillCommand,
}

func setup(env *environment, cfg config) (*orchestrator.Orchestrator, orchestrator.Request, error) {
	orch, err := cfg.orchestrator(cfg.logger(env.stderr))
	if err != nil {
		return nil, orchestrator.Request{}, err
	}
	req, err := cfg.request(env.stdin)
	if err != nil {
		return nil, orchestrator.Request{}, err
	}
	return orch, req, nil
}

func resolveCommand(ctx context.Context, env *environment, cfg config) error {
	orch, req, err := setup(env, cfg)
	if err != nil {
		return err
	}
	result, err := orch.Resolve(ctx, req)
	if err != nil {
		return err
	}
	return write(env, cfg, result)
}

func defaultsCommand(ctx context.Context, env *environment, cfg config) error {
	orch, req, err := setup(env, cfg)
	if err != nil {
		return err
	}
	result, err := orch.Resolve(ctx, req)
	if err != nil {
		return err
	}
	return write(env, cfg, result.State.FormData)
}

func idsCommand(ctx context.Context, env *environment, cfg config) error {
	orch, req, err := setup(env, cfg)
	if err != nil {
		return err
	}
	result, err := orch.Resolve(ctx, req)
	if err != nil {
		return err
	}
	return write(env, cfg, result.State.IDSchema)
}

func formsCommand(ctx context.Context, env *environment, cfg config) error {
	orch, req, err := setup(env, cfg)
	if err != nil {
		return err
	}
	refs, err := orch.Forms(ctx, req)
	if err != nil {
		return err
	}
	return write(env, cfg, refs)
}

func checkCommand(ctx context.Context, env *environment, cfg config) error {
	orch, req, err := setup(env, cfg)
	if err != nil {
		return err
	}
	result, err := orch.Check(ctx, req)
	if err != nil {
		return err
	}
	if err := write(env, cfg, result); err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("%d schema issue(s)", len(result.Issues))
	}
	return nil
}

func fillCommand(ctx context.Context, env *environment, cfg config) error {
	orch, req, err := setup(env, cfg)
	if err != nil {
		return err
	}
	in, _, err := orch.Prepare(ctx, req)
	if err != nil {
		return err
	}
	filler := prompt.New(
		prompt.WithEngine(orch.Engine()),
		prompt.WithDriver(prompt.NewSurveyDriver(env.stderr)),
		prompt.WithLogger(cfg.logger(env.stderr)),
	)
	result, err := filler.Fill(ctx, in)
	if err != nil {
		return err
	}
	if result.Outcome != engine.Resolved {
		fmt.Fprintf(env.stderr, "warning: form resolved with outcome %s\n", result.Outcome)
	}
	return write(env, cfg, result.FormData)
}

func write(env *environment, cfg config, value any) error {
	out := env.stdout
	if cfg.output != "" {
		file, err := os.Create(cfg.output)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	var (
		payload []byte
		err     error
	)
	if cfg.indent(out) {
		payload, err = json.MarshalIndent(value, "", "  ")
	} else {
		payload, err = json.Marshal(value)
	}
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	payload = append(payload, '\n')
	_, err = out.Write(payload)
	return err
}

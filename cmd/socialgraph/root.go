package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	socialgraph "github.com/saulfrancisco-ruizacevedo/go-socialgraph"
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/config"
)

// app is the state shared by every subcommand, filled in by the root PersistentPreRunE.
type app struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "socialgraph",
		Short:         "Explore a social graph of people and their connections",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cfg.Log.NewLogger(cmd.ErrOrStderr())
			slog.SetDefault(a.logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "socialgraph.yaml", "Path to the YAML configuration file")

	root.AddCommand(
		seedCmd(a),
		neighborhoodCmd(a),
		layoutCmd(a),
		addPersonCmd(a),
		connectCmd(a),
	)
	return root
}

// withManager opens the configured Neo4j database, verifies connectivity and runs fn.
func (a *app) withManager(ctx context.Context, fn func(pm *socialgraph.PersistenceManager) error) error {
	executor, err := socialgraph.NewNeo4jExecutor(
		a.cfg.Neo4j.URI,
		a.cfg.Neo4j.Username,
		a.cfg.Neo4j.Password,
		a.cfg.Neo4j.Database,
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := executor.Close(ctx); err != nil {
			a.logger.Warn("closing neo4j driver", slog.Any("error", err))
		}
	}()

	if err := executor.Verify(ctx); err != nil {
		return fmt.Errorf("neo4j at %s is not reachable: %w", a.cfg.Neo4j.URI, err)
	}
	a.logger.Debug("connected to neo4j",
		slog.String("uri", a.cfg.Neo4j.URI),
		slog.String("database", executor.DBName),
	)

	return fn(socialgraph.NewPersistenceManager(executor, socialgraph.WithLogger(a.logger)))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	socialgraph "github.com/saulfrancisco-ruizacevedo/go-socialgraph"
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/neighborhood"
)

func seedCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the database contents with the five-person sample network",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("seed deletes every node in the database; pass --yes to confirm")
			}
			return a.withManager(cmd.Context(), func(pm *socialgraph.PersistenceManager) error {
				people, err := pm.Seed(cmd.Context())
				if err != nil {
					return err
				}
				for _, p := range people {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", focalColor.Sprintf("%-8s", p.Name), subtleColor.Sprint(p.ID))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting the existing data")
	return cmd
}

func neighborhoodCmd(a *app) *cobra.Command {
	var (
		hops   int
		byName bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "neighborhood [person]",
		Short: "Print the people within a number of hops of a person, or everyone",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("hops") {
				hops = a.cfg.Aggregation.MaxHops
			}
			return a.withManager(cmd.Context(), func(pm *socialgraph.PersistenceManager) error {
				focal := ""
				if len(args) == 1 {
					var err error
					if focal, err = resolve(cmd, pm, args[0], byName); err != nil {
						return err
					}
				}

				agg := neighborhood.NewAggregator(pm, a.logger)
				var (
					g   *models.Graph
					err error
				)
				if focal == "" {
					g, err = agg.AggregateAll(cmd.Context())
				} else {
					g, err = agg.Aggregate(cmd.Context(), focal, hops)
				}
				if err != nil {
					return err
				}

				if asJSON {
					return printJSON(cmd.OutOrStdout(), g)
				}
				printGraph(cmd, g)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&hops, "hops", 2, "Maximum number of hops from the person (0-2)")
	cmd.Flags().BoolVar(&byName, "name", false, "Treat the argument as a name instead of an id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the graph as JSON")
	return cmd
}

func addPersonCmd(a *app) *cobra.Command {
	var bio string
	cmd := &cobra.Command{
		Use:   "add-person NAME",
		Short: "Add a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd.Context(), func(pm *socialgraph.PersistenceManager) error {
				p, err := pm.CreatePerson(cmd.Context(), args[0], bio)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", focalColor.Sprint(p.Name), subtleColor.Sprint(p.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bio, "bio", "", "Optional description")
	return cmd
}

func connectCmd(a *app) *cobra.Command {
	var (
		strength float64
		relType  string
	)
	cmd := &cobra.Command{
		Use:   "connect FROM TO",
		Short: "Connect two people; FROM is an id or name, TO is a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd.Context(), func(pm *socialgraph.PersistenceManager) error {
				c, err := pm.CreateOrMergeConnection(cmd.Context(), args[0], args[1], strength, relType)
				if err != nil {
					return err
				}
				a.logger.Info("connection stored",
					slog.String("source", c.SourceID),
					slog.String("target", c.TargetID),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s strength=%g %s\n", c.SourceID, c.TargetID, c.Strength, c.Type)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&strength, "strength", models.DefaultStrength, "Connection strength")
	cmd.Flags().StringVar(&relType, "type", "", "Connection category, e.g. friend or family")
	return cmd
}

// resolve turns a command argument into a person identity.
func resolve(cmd *cobra.Command, pm *socialgraph.PersistenceManager, arg string, byName bool) (string, error) {
	if !byName {
		return arg, nil
	}
	p, err := pm.PersonByName(cmd.Context(), arg)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func printGraph(cmd *cobra.Command, g *models.Graph) {
	out := cmd.OutOrStdout()
	for _, p := range g.Nodes {
		degree := "-"
		if p.Degree != nil {
			degree = fmt.Sprint(*p.Degree)
		}
		fmt.Fprintf(out, "%-3s %s %2d connections  %s\n",
			degree, hopColor(p.Degree).Sprintf("%-12s", p.Name), p.Connections, subtleColor.Sprint(p.ID))
	}
	for _, l := range g.Links {
		src, _ := g.Person(l.SourceID)
		dst, _ := g.Person(l.TargetID)
		fmt.Fprintf(out, "    %s -> %s %s\n", src.Name, dst.Name, subtleColor.Sprintf("(%g)", l.Strength))
	}
	infoColor.Fprintf(out, "%d people, %d connections\n", len(g.Nodes), len(g.Links))
}

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	socialgraph "github.com/saulfrancisco-ruizacevedo/go-socialgraph"
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/interaction"
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/neighborhood"
	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/session"
)

func layoutCmd(a *app) *cobra.Command {
	var (
		maxSteps int
		every    int
		byName   bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "layout [person]",
		Short: "Run the force layout until it settles and print the final positions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd.Context(), func(pm *socialgraph.PersistenceManager) error {
				focal := ""
				if len(args) == 1 {
					var err error
					if focal, err = resolve(cmd, pm, args[0], byName); err != nil {
						return err
					}
				}

				var opts []session.Option
				opts = append(opts, session.WithLogger(a.logger), session.WithMutator(pm))
				if every > 0 {
					opts = append(opts, session.WithRenderer(session.RendererFunc(func(f session.Frame) {
						if f.Number%uint64(every) == 0 {
							fmt.Fprintf(cmd.ErrOrStderr(), "frame %4d alpha=%.4f %s\n", f.Number, f.Alpha, f.Caption())
						}
					})))
				}

				s := session.New(neighborhood.NewAggregator(pm, a.logger), session.Config{
					MaxHops:     a.cfg.Aggregation.MaxHops,
					Layout:      a.cfg.Layout,
					ClickPolicy: interaction.SelectionPairs,
				}, opts...)
				defer s.Close()

				if err := <-s.Refocus(cmd.Context(), focal); err != nil {
					return err
				}

				frame := s.Advance()
				for i := 1; i < maxSteps && frame.Running; i++ {
					frame = s.Advance()
				}

				if asJSON {
					return printJSON(cmd.OutOrStdout(), frame)
				}
				printPositions(cmd, frame)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&maxSteps, "steps", 1000, "Maximum number of simulation steps")
	cmd.Flags().IntVar(&every, "trace", 0, "Print a progress line every N frames")
	cmd.Flags().BoolVar(&byName, "name", false, "Treat the argument as a name instead of an id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the final frame as JSON")
	return cmd
}

func printPositions(cmd *cobra.Command, f session.Frame) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", infoColor.Sprint(f.Caption()), subtleColor.Sprintf("after %d frames (alpha %.4f)", f.Number, f.Alpha))

	people := make([]*models.Person, 0, f.NodeCount())
	if f.Graph != nil {
		people = append(people, f.Graph.Nodes...)
	}
	sort.Slice(people, func(i, j int) bool { return people[i].Name < people[j].Name })
	for _, p := range people {
		pos := f.Positions[p.ID]
		fmt.Fprintf(out, "  %s x=%7.1f y=%7.1f\n", hopColor(p.Degree).Sprintf("%-12s", p.Name), pos.X, pos.Y)
	}
}

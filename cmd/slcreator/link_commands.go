package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/slcreator/internal/edit"
	"github.com/gyaneshwarpardhi/slcreator/internal/graph"
	"github.com/gyaneshwarpardhi/slcreator/internal/query"
	"github.com/gyaneshwarpardhi/slcreator/internal/simulate"
	"github.com/gyaneshwarpardhi/slcreator/internal/sociallink"
	"github.com/gyaneshwarpardhi/slcreator/internal/store"
	"github.com/gyaneshwarpardhi/slcreator/internal/workspace"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <arcana>",
		Short: "Summarize the cutscenes of a social link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st store.Store) error {
				link, err := sociallink.Load(cmd.Context(), st, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Arcana:     %s\n", link.Arcana)
				if link.Pseudoname != "" {
					fmt.Fprintf(out, "Pseudoname: %s\n", link.Pseudoname)
				}
				if link.Info != "" {
					fmt.Fprintf(out, "Info:       %s\n", link.Info)
				}
				levels := link.Levels()
				if len(levels) == 0 {
					fmt.Fprintln(out, "No cutscenes yet")
					return nil
				}
				rows := make([][]string, 0, len(levels))
				for _, la := range levels {
					g, _ := link.Cutscene(la[0], la[1])
					req := "-"
					if r, ok := link.Requirement(la[0], la[1]); ok {
						req = fmt.Sprintf("%d pts, courage %d, charm %d, acad %d", r.Points, r.Courage, r.Charm, r.Acad)
					}
					rows = append(rows, []string{
						strconv.Itoa(la[0]),
						strconv.Itoa(la[1]),
						strconv.Itoa(g.Size()),
						req,
						link.CutInfo[sociallink.Key(la[0], la[1])],
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Level", "Angle", "Nodes", "Requirement", "Info"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newNodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "nodes <arcana> <level> <angle>",
		Short: "List the nodes of a cutscene",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			arcana, level, angle, err := cutsceneArgs(args)
			if err != nil {
				return err
			}
			g, err := ctx.loadCutscene(cmd.Context(), arcana, level, angle)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderNodes(g.Nodes()))
			return nil
		},
	}
}

func newFindCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "find <arcana> <level> <angle> <query>",
		Short: "List the nodes of a cutscene matching a query",
		Long: `Query fields are index, kind, label and the keys of the node's record.
Nested values are reached with dots (points.Lovers, cameraPosition.0).

Examples:
  kind == "speak" AND speaker == "Yukari"
  points.Lovers >= 3
  NOT (kind == "unsaved") AND label matches "^Dorm"

Kinds: ` + strings.Join(query.Kinds(), ", "),
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			arcana, level, angle, err := cutsceneArgs(args)
			if err != nil {
				return err
			}
			q, err := query.Compile(args[3])
			if err != nil {
				return err
			}
			g, err := ctx.loadCutscene(cmd.Context(), arcana, level, angle)
			if err != nil {
				return err
			}
			found, err := query.Find(g, q)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching nodes")
				return nil
			}
			keep := make(map[int]bool, len(found))
			for _, i := range found {
				keep[i] = true
			}
			var nodes []graph.Node
			for _, n := range g.Nodes() {
				if keep[n.Index] {
					nodes = append(nodes, n)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderNodes(nodes))
			return nil
		},
	}
}

func newSubtreeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "subtree <arcana> <level> <angle> <index>",
		Short: "Show which nodes deleting a node would remove",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			arcana, level, angle, err := cutsceneArgs(args)
			if err != nil {
				return err
			}
			index, err := intArg("index", args[3])
			if err != nil {
				return err
			}
			g, err := ctx.loadCutscene(cmd.Context(), arcana, level, angle)
			if err != nil {
				return err
			}
			nodes, err := g.UniqueSubtree(index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleting node %d removes: %s\n", index, joinInts(nodes))
			return nil
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <arcana> <level> <angle> <index>",
		Short: "Delete a node and every node only reachable through it",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			arcana, level, angle, err := cutsceneArgs(args)
			if err != nil {
				return err
			}
			index, err := intArg("index", args[3])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st store.Store) error {
				ws, err := workspace.New(cmd.Context(), st, workspace.Options{
					CacheSize: 1,
					Logger:    ctx.logger,
				})
				if err != nil {
					return err
				}

				var deleted []int
				editErr := ws.Edit(cmd.Context(), arcana, func(link *sociallink.SocialLink) (workspace.Change, error) {
					if _, ok := link.Cutscene(level, angle); !ok {
						return workspace.Change{}, fmt.Errorf("%s has no cutscene at level %d angle %d", arcana, level, angle)
					}
					s, err := edit.Open(link, level, angle)
					if err != nil {
						return workspace.Change{}, err
					}
					if !yes {
						preview, err := s.PreviewDelete(index)
						if err != nil {
							return workspace.Change{}, err
						}
						return workspace.Change{}, &unconfirmedError{nodes: preview}
					}
					if deleted, err = s.Delete(index); err != nil {
						return workspace.Change{}, err
					}
					return workspace.Change{Op: "delete", Level: level, Angle: angle, Nodes: deleted}, nil
				})
				closeErr := ws.Close(cmd.Context())

				var unconfirmed *unconfirmedError
				if errors.As(editErr, &unconfirmed) {
					fmt.Fprintf(cmd.OutOrStdout(), "Would delete: %s\nRe-run with --yes to delete.\n", joinInts(unconfirmed.nodes))
					return closeErr
				}
				if editErr != nil {
					return editErr
				}
				if closeErr != nil {
					return closeErr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", joinInts(deleted))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

// unconfirmedError aborts a delete after computing what it would remove.
type unconfirmedError struct{ nodes []int }

func (e *unconfirmedError) Error() string { return "delete not confirmed" }

func newSimulateCommand(ctx *commandContext) *cobra.Command {
	var picks []int
	var limit int

	cmd := &cobra.Command{
		Use:   "simulate <arcana> <level> <angle>",
		Short: "Play a cutscene from its first node",
		Long: `Plays the cutscene the way the game would. Whenever a node offers
several responses the next --pick value (0-based) selects one.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			arcana, level, angle, err := cutsceneArgs(args)
			if err != nil {
				return err
			}
			g, err := ctx.loadCutscene(cmd.Context(), arcana, level, angle)
			if err != nil {
				return err
			}
			steps, ledger, playErr := simulate.Play(g, picks, limit)
			out := cmd.OutOrStdout()
			for _, s := range steps {
				marker := " "
				if s.Chosen {
					marker = ">"
				}
				fmt.Fprintf(out, "%s [%d] %s\n", marker, s.Index, s.Text)
			}
			if errors.Is(playErr, simulate.ErrChoiceRequired) {
				fmt.Fprintf(out, "\nNode %d offers a choice; add another --pick to continue.\n", steps[len(steps)-1].Index)
				return nil
			}
			if playErr != nil {
				return playErr
			}
			arcanas := ledger.Arcana()
			if len(arcanas) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(arcanas))
			for _, a := range arcanas {
				rows = append(rows, []string{a, strconv.Itoa(ledger.Points(a)), strconv.Itoa(ledger.Angle(a))})
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable([]string{"Arcana", "Points", "Angle"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&picks, "pick", nil, "Response to pick at each choice, in order (e.g. --pick 0,1)")
	cmd.Flags().IntVar(&limit, "limit", simulate.DefaultStepLimit, "Stop after this many steps")
	return cmd
}

func newRefsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refs <name>",
		Short: "Print a reference list (characters, places, animations, ...)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st store.Store) error {
				values, err := st.ReferenceList(cmd.Context(), args[0])
				if errors.Is(err, store.ErrNotExist) {
					return fmt.Errorf("no reference list named %q", args[0])
				}
				if err != nil {
					return err
				}
				rows := make([][]string, len(values))
				for i, v := range values {
					rows[i] = []string{strconv.Itoa(i + 1), v}
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", args[0]}, rows,
					[]columnAlignment{alignRight, alignLeft}))
				return nil
			})
		},
	}
}

func renderNodes(nodes []graph.Node) string {
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		kind, label := query.KindUnsaved, ""
		if n.Payload != nil {
			kind = string(n.Payload.Kind())
			label = simulate.Describe(n.Payload)
		}
		rows = append(rows, []string{strconv.Itoa(n.Index), kind, truncate(label, 60), joinInts(n.Successors)})
	}
	return renderTable([]string{"#", "Kind", "Action", "Next"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft})
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

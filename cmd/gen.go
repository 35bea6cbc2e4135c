package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/wfunc/sweepserver/generator"
	"github.com/wfunc/sweepserver/grid"
	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/solver"
)

var (
	genWidth    int
	genHeight   int
	genMines    int
	genTopology string
	genLevel    string
	genSeed     uint64
	genBudget   time.Duration
	genCount    int
)

func init() {
	genCmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate mine layouts",
		Long: `Generate one or more mine layouts the way a room would and print them.

Mines are shown as *, the certified start cell as S and empty cells as dots.

Examples:
  sweepserver gen -W 30 -H 16 -m 99
  sweepserver gen --level deep --seed 42
  sweepserver gen --topology hex -n 3 --budget 500ms`,
		RunE: runGen,
	}

	genCmd.Flags().IntVarP(&genWidth, "width", "W", 16, "Board width")
	genCmd.Flags().IntVarP(&genHeight, "height", "H", 16, "Board height")
	genCmd.Flags().IntVarP(&genMines, "mines", "m", 40, "Number of mines")
	genCmd.Flags().StringVarP(&genTopology, "topology", "t", grid.Square.String(), "square or hex")
	genCmd.Flags().StringVarP(&genLevel, "level", "l", solver.GuessBasic.String(), "any, basic or deep")
	genCmd.Flags().Uint64Var(&genSeed, "seed", 0, "Random seed, 0 picks one")
	genCmd.Flags().DurationVar(&genBudget, "budget", 2*time.Second, "Time allowed per layout")
	genCmd.Flags().IntVarP(&genCount, "number", "n", 1, "Number of layouts to generate")

	rootCmd.AddCommand(genCmd)
}

func parseTopology(s string) (grid.Topology, error) {
	for _, t := range []grid.Topology{grid.Square, grid.Hex} {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown topology %q", s)
}

func parseLevel(s string) (solver.Level, error) {
	for _, l := range []solver.Level{solver.GuessAny, solver.GuessBasic, solver.GuessDeep} {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown guess level %q", s)
}

func runGen(cmd *cobra.Command, args []string) error {
	logger.InitDevelopment()
	defer logger.Sync()

	topology, err := parseTopology(genTopology)
	if err != nil {
		return err
	}
	level, err := parseLevel(genLevel)
	if err != nil {
		return err
	}
	req := generator.Request{
		Width:     genWidth,
		Height:    genHeight,
		Topology:  topology,
		MineCount: genMines,
		Level:     level,
	}

	for i := 0; i < genCount; i++ {
		opts := generator.Options{Budget: genBudget}
		if genSeed != 0 {
			opts.Seed = genSeed + uint64(i)
		}
		res := generator.Generate(context.Background(), opts, req)
		if res.Err != nil {
			return res.Err
		}
		if i > 0 {
			fmt.Fprintln(os.Stdout)
		}
		writeLayout(os.Stdout, res)
	}
	return nil
}

// writeLayout prints a summary line followed by one text row per grid row.
func writeLayout(w io.Writer, res generator.Result) {
	mines, counts := res.Mines, res.Counts
	status := "uncertified"
	if res.Solved {
		status = "certified"
	}
	fmt.Fprintf(w, "%dx%d %s, %s after %d attempts in %v\n",
		mines.Width(), mines.Height(), mines.Topology(), status, res.Attempts, res.Elapsed.Round(time.Millisecond))

	var sb strings.Builder
	for y := 0; y < mines.Height(); y++ {
		sb.Reset()
		if mines.Topology() == grid.Hex && y%2 == 1 {
			sb.WriteByte(' ')
		}
		for x := 0; x < mines.Width(); x++ {
			p := grid.Pos{X: x, Y: y}
			switch c := counts.Get(p); {
			case mines.Get(p):
				sb.WriteByte('*')
			case res.HasStart && p == res.Start:
				sb.WriteByte('S')
			case c == 0:
				sb.WriteByte('.')
			default:
				sb.WriteByte('0' + c)
			}
			if mines.Topology() == grid.Hex {
				sb.WriteByte(' ')
			}
		}
		fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	}
}

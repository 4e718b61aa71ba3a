package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/chazu/xylem/pkg/kernel/brep"
	"github.com/chazu/xylem/pkg/scene"
)

func newBopCmd() *cobra.Command {
	var (
		format string
		stl    string
	)
	cmd := &cobra.Command{
		Use:   "bop SCENE",
		Short: "Run the boolean operation described by a TOML or YAML scene",
		Long: "Bop builds the objects and tools of a scene, performs its operation and prints a\n" +
			"report of the result, the face history of every argument and the alerts raised.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := settings(cmd)
			if err != nil {
				return err
			}
			sc, err := scene.Load(args[0])
			if err != nil {
				return err
			}
			opts := cfg.PaverOptions(log)
			res, runErr := sc.Run(cmd.Context(), opts)
			if res == nil || res.Builder == nil {
				return runErr
			}
			if err := scene.NewReport(sc, res).Encode(cmd.OutOrStdout(), format); err != nil {
				return errors.Join(runErr, err)
			}
			if runErr != nil {
				return runErr
			}
			if stl != "" {
				out := res.Builder.Shape()
				if out.IsNull() {
					log.Warn("empty result, no mesh written", "path", stl)
					return nil
				}
				if err := brep.New(opts).SaveSTL(stl, brep.Wrap(out)); err != nil {
					return err
				}
				log.Info("wrote mesh", "path", stl)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "report format: yaml or json")
	cmd.Flags().StringVar(&stl, "stl", "", "write the result mesh to this STL file")
	return cmd
}

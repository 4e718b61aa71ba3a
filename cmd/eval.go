package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/xylem/pkg/app"
)

func newEvalCmd() *cobra.Command {
	var (
		asJSON bool
		stlDir string
	)
	cmd := &cobra.Command{
		Use:   "eval FILE",
		Short: "Evaluate a design script and report its parts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := settings(cmd)
			if err != nil {
				return err
			}
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			a := app.New(cfg.AppOptions(log))

			var res app.EvalResult
			if stlDir != "" {
				var paths []string
				paths, res = a.ExportSTL(cmd.Context(), string(source), stlDir)
				for _, p := range paths {
					log.Info("wrote mesh", "path", p)
				}
			} else {
				res = a.Evaluate(cmd.Context(), string(source))
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				printResult(cmd.OutOrStdout(), res)
			}
			if !res.OK() {
				return fmt.Errorf("%s: %d error(s)", args[0], len(res.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print meshes and messages as JSON")
	cmd.Flags().StringVar(&stlDir, "stl", "", "write one STL file per part into this directory")
	return cmd
}

// printResult writes a one-line summary per part followed by the messages.
func printResult(w io.Writer, res app.EvalResult) {
	for _, m := range res.Meshes {
		fmt.Fprintf(w, "%-20s %6d triangles %4d lines  volume %.6g\n",
			m.PartName, len(m.Indices)/3, len(m.Lines)/2, m.Volume)
	}
	for _, m := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", location(m))
	}
	for _, m := range res.Errors {
		fmt.Fprintf(w, "error: %s\n", location(m))
	}
}

func location(m app.Message) string {
	switch {
	case m.Line > 0:
		return fmt.Sprintf("%d:%d: %s", m.Line, m.Col, m.Message)
	case m.Node != "" && m.Code != "":
		return fmt.Sprintf("%s [%s]: %s", m.Node, m.Code, m.Message)
	case m.Node != "":
		return fmt.Sprintf("%s: %s", m.Node, m.Message)
	}
	return m.Message
}

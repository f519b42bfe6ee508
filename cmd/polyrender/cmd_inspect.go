package main

import (
	"fmt"

	"github.com/benjaminschreck/go-polyrender/pkg/polyrender"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var flags engineFlags

	cmd := &cobra.Command{
		Use:   "inspect <template>",
		Short: "Print the compiled program and its variable declarations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := flags.engine()
			if err != nil {
				return err
			}
			source, err := readTemplate(args[0])
			if err != nil {
				return err
			}
			tmpl, err := engine.Compile(source, polyrender.OutputString)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			program := tmpl.Program()
			fmt.Fprintln(out, "declarations:")
			for _, d := range program.Declarations {
				fmt.Fprintf(out, "  %s\n", d)
			}
			if names := engine.Elements().Names(); len(names) > 0 {
				fmt.Fprintln(out, "elements:")
				for _, name := range names {
					fmt.Fprintf(out, "  %s\n", name)
				}
			}
			fmt.Fprintln(out, "program:")
			_, err = fmt.Fprintf(out, "  %s\n", program)
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

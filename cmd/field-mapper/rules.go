package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"field-mapper/internal/form"
	"field-mapper/internal/rules"
)

func newRulesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect manufacturer rule sets",
	}

	cmd.AddCommand(newRulesCheckCmd(root))

	return cmd
}

func newRulesCheckCmd(root *rootOptions) *cobra.Command {
	var templatesPath string

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Validate a rules file (default: RULES_PATH or the built-in rules)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := root.config()
				if err != nil {
					return err
				}

				path = cfg.RulesPath
			}

			catalog, err := rules.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "rules version %s\n", catalog.Version())

			for _, id := range catalog.Manufacturers() {
				rs, _ := catalog.Get(id)
				fmt.Fprintf(out, "%s (%s): date %s, phone %s", id, rs.DisplayName, orDash(rs.Formats.Date), orDash(rs.Formats.Phone))

				if sub := rs.SubmissionRules(); len(sub) > 0 {
					fmt.Fprintf(out, ", submission rules: %s", strings.Join(sub, ", "))
				}

				fmt.Fprintln(out)
			}

			if templatesPath == "" {
				return nil
			}

			reg, err := form.LoadTemplates(templatesPath)
			if err != nil {
				return err
			}

			if err := catalog.CheckTemplates(reg.All()); err != nil {
				return err
			}

			fmt.Fprintf(out, "templates %s: ok\n", templatesPath)

			return nil
		},
	}

	cmd.Flags().StringVar(&templatesPath, "templates", "", "also check a templates file against the rules")

	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

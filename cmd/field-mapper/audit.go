package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type auditOptions struct {
	manufacturer string
	template     string
	limit        int
	learned      bool
}

func newAuditCmd(root *rootOptions) *cobra.Command {
	opts := &auditOptions{}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent audit entries of a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()

			if opts.learned {
				mappings, err := st.ListLearned(ctx, opts.manufacturer, opts.template)
				if err != nil {
					return err
				}

				fmt.Fprintln(w, "SOURCE\tTARGET\tCONFIDENCE\tUSAGE\tSUCCESS\tUPDATED")

				for _, m := range mappings {
					fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%d\t%s\n",
						m.SourceField, m.TargetField, m.Confidence, m.UsageCount, m.SuccessCount,
						m.UpdatedAt.Format("2006-01-02 15:04:05"))
				}

				return nil
			}

			entries, err := st.List(ctx, opts.manufacturer, opts.template, opts.limit)
			if err != nil {
				return err
			}

			fmt.Fprintln(w, "TIME\tRUN\tFIELD\tSTATUS\tSTRATEGY\tSOURCE\tCONFIDENCE")

			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), shortID(e.RunID), e.TargetField,
					e.Status, e.Strategy, orDash(e.SourceField), e.Confidence)
			}

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.manufacturer, "manufacturer", "m", "", "manufacturer ID")
	f.StringVarP(&opts.template, "template", "t", "", "template ID")
	f.IntVar(&opts.limit, "limit", 50, "maximum entries to print (0 for all)")
	f.BoolVar(&opts.learned, "learned", false, "list learned mappings instead of audit entries")

	_ = cmd.MarkFlagRequired("manufacturer")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"field-mapper/internal/match"
)

func newScoreCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "score <a> <b>",
		Short: "Print the similarity of two field names",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, b := args[0], args[1]
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "%.4f\n", match.Score(a, b))

			if verbose {
				na, nb := match.Normalize(a), match.Normalize(b)
				fmt.Fprintf(out, "normalized: %s | %s\n", na, nb)
				fmt.Fprintf(out, "edit:       %.4f\n", match.EditSimilarity(na, nb))
				fmt.Fprintf(out, "prefix:     %.4f\n", match.PrefixSimilarity(na, nb))
				fmt.Fprintf(out, "token:      %.4f\n", match.TokenSimilarity(na, nb))
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print the score components")

	return cmd
}

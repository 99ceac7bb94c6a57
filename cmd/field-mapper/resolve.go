package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"field-mapper/internal/match"
	"field-mapper/internal/plan"
	"field-mapper/internal/report"
	"field-mapper/internal/source"
	"field-mapper/internal/validate"
)

type resolveOptions struct {
	manufacturer string
	template     string
	source       string
	lenient      bool
	enhance      bool
	xlsx         string
}

func newResolveCmd(root *rootOptions) *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Map a JSON source payload onto a manufacturer template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.manufacturer, "manufacturer", "m", "", "manufacturer ID")
	f.StringVarP(&opts.template, "template", "t", "", "template ID")
	f.StringVarP(&opts.source, "source", "s", "", "source JSON file (- for stdin)")
	f.BoolVar(&opts.lenient, "lenient", false, "do not report missing required fields as errors")
	f.BoolVar(&opts.enhance, "enhance", false, "ask the configured language model for extra candidates")
	f.StringVar(&opts.xlsx, "xlsx", "", "also write the result as an XLSX workbook")

	_ = cmd.MarkFlagRequired("manufacturer")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runResolve(cmd *cobra.Command, root *rootOptions, opts *resolveOptions) error {
	ctx := cmd.Context()

	raw, err := readSource(cmd, opts.source)
	if err != nil {
		return err
	}

	cfg, err := root.config()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	req := plan.Request{
		Manufacturer: opts.manufacturer,
		Template:     opts.template,
		Source:       raw,
		Mode:         validate.ModeStrict,
	}

	if opts.lenient {
		req.Mode = validate.ModeLenient
	}

	if opts.enhance {
		req.Enhancement = a.enhancement(cmd, req)
	}

	res, err := a.orch.Map(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if opts.xlsx != "" {
		if err := report.SaveXLSX(res, opts.xlsx); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
	}

	return nil
}

// enhancement asks the enhancer about every template field. Failures are
// logged and the run proceeds without suggestions.
func (a *app) enhancement(cmd *cobra.Command, req plan.Request) match.Enhancement {
	if a.enhancer == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: --enhance ignored, OPENAI_API_KEY is not set")
		return nil
	}

	specs, err := a.templates.Fields(cmd.Context(), req.Manufacturer, req.Template)
	if err != nil {
		return nil
	}

	targets := make([]string, len(specs))
	for i, s := range specs {
		targets[i] = s.Name
	}

	enh, err := a.enhancer.Enhance(cmd.Context(), targets, source.Flatten(req.Source))
	if err != nil {
		a.logger.Warn("enhancement unavailable", zap.Error(err))
		return nil
	}

	return enh
}

func readSource(cmd *cobra.Command, path string) (map[string]any, error) {
	var r io.Reader

	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open source: %w", err)
		}
		defer f.Close()

		r = f
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode source JSON: %w", err)
	}

	return raw, nil
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"creative-automation/internal/app"
	"creative-automation/internal/audience"
	"creative-automation/internal/campaign"
	"creative-automation/internal/config"
	"creative-automation/internal/locale"
)

type rootOptions struct {
	outputDir string
	briefPath string
	region    string
	category  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "creative",
		Short:        "Generate localized, brand-stamped campaign creatives",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVarP(&opts.outputDir, "output-dir", "o", "", "campaign output directory (overrides OUTPUT_DIR)")

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Run a campaign brief through the pipeline",
		Long: `Reads a brief as JSON (--brief file, or "-" for stdin), generates every
product at 1:1, 16:9 and 9:16, and prints the campaign result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}
	generate.Flags().StringVarP(&opts.briefPath, "brief", "b", "", "path to the brief JSON, or - for stdin")
	_ = generate.MarkFlagRequired("brief")

	manifest := &cobra.Command{
		Use:   "manifest",
		Short: "Rebuild master_manifest.json from the campaign artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := outputDir(opts)
			if err != nil {
				return err
			}
			m, path, err := campaign.WriteManifest(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d campaigns)\n", path, m.Info.TotalCampaigns)
			return printJSON(cmd.OutOrStdout(), m.Info)
		},
	}

	countries := &cobra.Command{
		Use:   "countries [query]",
		Short: "List or search supported countries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := locale.Default()
			var out []locale.Country
			switch {
			case len(args) == 1:
				out = reg.Search(args[0])
			case opts.region != "":
				out = reg.ByRegion(opts.region)
			default:
				out = reg.All()
			}
			w := cmd.OutOrStdout()
			for _, c := range out {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Code, c.Name, c.PrimaryLanguage, c.Region)
			}
			return nil
		},
	}
	countries.Flags().StringVar(&opts.region, "region", "", "only countries in this region")

	audiences := &cobra.Command{
		Use:   "audiences",
		Short: "List audience segments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat := audience.Default()
			out := cat.All()
			if opts.category != "" {
				out = cat.ByCategory(opts.category)
			}
			w := cmd.OutOrStdout()
			for _, d := range out {
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Label, d.Category)
			}
			return nil
		},
	}
	audiences.Flags().StringVar(&opts.category, "category", "", "only audiences in this category")

	root.AddCommand(generate, manifest, countries, audiences)
	return root
}

func runGenerate(cmd *cobra.Command, opts *rootOptions) error {
	brief, err := readBrief(cmd.InOrStdin(), opts.briefPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}

	a, err := app.New(cfg, app.NewLogger(cfg))
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Service.Run(cmd.Context(), brief)
	if err != nil {
		var cf *campaign.ComplianceFailure
		if errors.As(err, &cf) {
			_ = printJSON(cmd.ErrOrStderr(), cf.Verdict)
		}
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func readBrief(stdin io.Reader, path string) (campaign.Brief, error) {
	var r io.Reader
	if strings.TrimSpace(path) == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return campaign.Brief{}, fmt.Errorf("open brief: %w", err)
		}
		defer f.Close()
		r = f
	}

	var brief campaign.Brief
	if err := json.NewDecoder(r).Decode(&brief); err != nil {
		return campaign.Brief{}, fmt.Errorf("decode brief: %w", err)
	}
	return brief, nil
}

func outputDir(opts *rootOptions) (string, error) {
	if opts.outputDir != "" {
		return opts.outputDir, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.OutputDir, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okian/seoscore/internal/domain/model"
	"github.com/okian/seoscore/internal/domain/scoring"
)

type scoreOptions struct {
	entry      string
	clientType string
	prior      []string
}

func newScoreCmd(load configLoader) *cobra.Command {
	var opts scoreOptions

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an entry file offline and print the breakdown as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd.Context())
			if err != nil {
				return err
			}
			client := model.Client{ID: "offline", Type: model.ClientType(opts.clientType)}
			if !client.Type.Valid() {
				return fmt.Errorf("unknown client type %q", opts.clientType)
			}

			entry, err := readEntry(opts.entry)
			if err != nil {
				return err
			}
			prior := make([]model.MonthlyEntry, 0, len(opts.prior))
			for _, path := range opts.prior {
				e, err := readEntry(path)
				if err != nil {
					return err
				}
				prior = append(prior, e)
			}

			result := scoring.NewEngine(cfg.Scoring).CalculateMonthScore(&entry, client, prior)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&opts.entry, "entry", "", "YAML file with the entry metrics")
	cmd.Flags().StringVar(&opts.clientType, "client-type", string(model.ClientStandard), "client tier: Premium or Standard")
	cmd.Flags().StringArrayVar(&opts.prior, "prior", nil, "YAML file of an earlier scored entry, most recent first (repeatable)")
	_ = cmd.MarkFlagRequired("entry")
	return cmd
}

func readEntry(path string) (model.MonthlyEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.MonthlyEntry{}, fmt.Errorf("read entry: %w", err)
	}
	var e model.MonthlyEntry
	if err := yaml.Unmarshal(raw, &e); err != nil {
		return model.MonthlyEntry{}, fmt.Errorf("parse entry %s: %w", path, err)
	}
	return e, nil
}

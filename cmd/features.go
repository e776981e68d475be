// File: cmd/features.go
package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Jai3405/vulntriage/internal/model"
	"github.com/Jai3405/vulntriage/internal/observability"
	"github.com/Jai3405/vulntriage/internal/risk"
)

// newFeaturesCmd creates the `features` command, a read-only query of the
// risk model's per-feature importances.
func newFeaturesCmd() *cobra.Command {
	featuresCmd := &cobra.Command{
		Use:   "features",
		Short: "Shows the risk model's feature importances",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("models.risk_path", cmd.Flags().Lookup("risk-model"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			clf, err := model.LoadRisk(viper.GetString("models.risk_path"))
			if err != nil {
				return fmt.Errorf("loading risk model: %w", err)
			}
			scorer, err := risk.NewScorer(clf, logger)
			if err != nil {
				return err
			}

			importances := scorer.FeatureImportance()
			if len(importances) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "the loaded artifact carries no feature importances")
				return nil
			}

			names := make([]string, 0, len(importances))
			for name := range importances {
				names = append(names, name)
			}
			// Descending importance, name as the deterministic tie-break.
			sort.Slice(names, func(i, j int) bool {
				if importances[names[i]] != importances[names[j]] {
					return importances[names[i]] > importances[names[j]]
				}
				return names[i] < names[j]
			})

			fmt.Fprintf(cmd.OutOrStdout(), "feature schema: %d dimensions\n", scorer.SchemaDim())
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-30s %.4f\n", name, importances[name])
			}
			return nil
		},
	}

	featuresCmd.Flags().String("risk-model", "", "Path to a risk classifier artifact. Defaults to the embedded model.")
	return featuresCmd
}

// File: cmd/triage.go
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Jai3405/vulntriage/api/schemas"
	"github.com/Jai3405/vulntriage/internal/config"
	"github.com/Jai3405/vulntriage/internal/engine"
	"github.com/Jai3405/vulntriage/internal/ingest"
	"github.com/Jai3405/vulntriage/internal/model"
	"github.com/Jai3405/vulntriage/internal/observability"
	"github.com/Jai3405/vulntriage/internal/reporting"
)

// errCriticalFindings drives the non-zero exit code when unresolved critical
// findings remain after triage.
var errCriticalFindings = errors.New("critical findings remain after triage")

// newTriageCmd creates and configures the `triage` command.
func newTriageCmd() *cobra.Command {
	triageCmd := &cobra.Command{
		Use:   "triage [findings.json]",
		Short: "Scores, filters, and ranks a batch of scanner findings",
		Args:  cobra.ExactArgs(1),
		// PreRunE binds flags to their viper keys so that command-line flags
		// correctly override values from the config file and environment.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("engine.worker_concurrency", cmd.Flags().Lookup("concurrency")); err != nil {
				return err
			}
			if err := viper.BindPFlag("engine.noise_threshold", cmd.Flags().Lookup("noise-threshold")); err != nil {
				return err
			}
			if err := viper.BindPFlag("engine.severity_threshold", cmd.Flags().Lookup("severity")); err != nil {
				return err
			}
			if err := viper.BindPFlag("models.risk_path", cmd.Flags().Lookup("risk-model")); err != nil {
				return err
			}
			if err := viper.BindPFlag("models.noise_path", cmd.Flags().Lookup("noise-model")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from main (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			var cfg config.Config
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to unmarshal config with flag overrides: %w", err)
			}

			riskClf, err := model.LoadRisk(cfg.Models.RiskPath)
			if err != nil {
				return fmt.Errorf("loading risk model: %w", err)
			}
			noiseClf, err := model.LoadNoise(cfg.Models.NoisePath)
			if err != nil {
				return fmt.Errorf("loading noise model: %w", err)
			}

			eng, err := engine.New(&cfg, riskClf, noiseClf, logger)
			if err != nil {
				return err
			}

			findings, err := ingest.ReadFile(args[0])
			if err != nil {
				return err
			}
			logger.Info("Ingested findings",
				zap.String("input", args[0]),
				zap.Int("count", len(findings)))

			report, err := eng.Run(ctx, findings)
			if err != nil {
				return err
			}

			if err := writeReport(report, viper.GetString("format"), viper.GetString("output"), logger); err != nil {
				return err
			}

			if viper.GetBool("fail_on_critical") {
				if n := engine.CriticalCount(report); n > 0 {
					return fmt.Errorf("%w: %d", errCriticalFindings, n)
				}
			}
			return nil
		},
	}

	triageCmd.Flags().StringP("output", "o", "", "Output file path for the report. If unset, the report goes to stdout.")
	triageCmd.Flags().StringP("format", "f", "json", "Format for the output report ('json' or 'text').")
	triageCmd.Flags().IntP("concurrency", "j", 0, "Number of concurrent scoring workers. (Overrides config/env)")
	triageCmd.Flags().Float64("noise-threshold", 0, "Probability at or above which a finding is filtered as noise. (Overrides config/env)")
	triageCmd.Flags().String("severity", "", "Minimum severity to include in the report, e.g. 'medium'. (Overrides config/env)")
	triageCmd.Flags().String("risk-model", "", "Path to a risk classifier artifact. Defaults to the embedded model.")
	triageCmd.Flags().String("noise-model", "", "Path to a noise classifier artifact. Defaults to the embedded model.")
	triageCmd.Flags().Bool("fail-on-critical", false, "Exit non-zero when critical-priority findings remain.")

	// Flags without a config-file counterpart bind directly.
	_ = viper.BindPFlag("output", triageCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("format", triageCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("fail_on_critical", triageCmd.Flags().Lookup("fail-on-critical"))

	return triageCmd
}

// writeReport renders the report in the requested format.
func writeReport(report *schemas.TriageReport, format, outputPath string, logger *zap.Logger) error {
	reporter, err := reporting.New(format, outputPath)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Error("Failed to close reporter", zap.Error(err))
		}
	}()

	if err := reporter.Write(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if outputPath != "" && outputPath != "stdout" {
		logger.Info("Report written", zap.String("path", outputPath))
	}
	return nil
}

// cmd/trainer/commands.go
package main

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/spf13/cobra"

	"hr-evaluator.kz/internal/auth"
	"hr-evaluator.kz/internal/config"
	"hr-evaluator.kz/internal/ml"
)

const (
	defaultDataPath  = "employee_data.csv"
	defaultModelPath = "model/performance_model.json"
	defaultPlotPath  = "static/model_comparison.png"
)

func newRootCmd() *cobra.Command {
	var logEnv string
	rootCmd := &cobra.Command{
		Use:           "trainer",
		Short:         "Обучение и сравнение моделей оценки эффективности сотрудников",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(config.NewLogger(cmd.ErrOrStderr(), logEnv))
		},
	}
	rootCmd.PersistentFlags().StringVar(&logEnv, "log-env", "development", "окружение логгера (development - текстовый лог, иначе JSON)")

	rootCmd.AddCommand(newTrainCmd(), newCompareCmd(), newHashPasswordCmd())
	return rootCmd
}

func newTrainCmd() *cobra.Command {
	var dataPath, outPath string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Обучить линейную регрессию на всех строках и сохранить модель",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := ml.LoadDataset(dataPath)
			if err != nil {
				return err
			}
			model := ml.NewLinearRegression()
			if err := model.Fit(ds.X, ds.Y); err != nil {
				return fmt.Errorf("обучение LinearRegression: %w", err)
			}
			a, err := ml.NewArtifact("LinearRegression", model, len(ds.X), math.NaN(), math.NaN())
			if err != nil {
				return err
			}
			if err := ml.SaveArtifact(outPath, a); err != nil {
				return err
			}
			slog.Info("Модель обучена и сохранена", "path", outPath, "samples", len(ds.X), "coef", model.Coef, "intercept", model.Intercept)
			fmt.Fprintf(cmd.OutOrStdout(), "Model trained and saved as %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", defaultDataPath, "CSV с обучающими данными")
	cmd.Flags().StringVar(&outPath, "out", defaultModelPath, "путь для сохранения модели")
	return cmd
}

func newCompareCmd() *cobra.Command {
	var dataPath, outPath, plotPath string
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Сравнить регрессоры кросс-валидацией и сохранить лучший",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := ml.LoadDataset(dataPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			candidates := ml.DefaultCandidates()
			fmt.Fprintf(out, "Training and evaluating %d models with cv=%d (samples=%d)\n", len(candidates), ml.NumFolds(len(ds.X)), len(ds.X))

			cmp, err := ml.CompareModels(cmd.Context(), candidates, ds.X, ds.Y)
			if err != nil {
				return err
			}
			for _, r := range cmp.Results {
				if r.Err != nil {
					fmt.Fprintf(out, "%s failed during cross-validation: %v\n", r.Name, r.Err)
					continue
				}
				fmt.Fprintf(out, "%s: mean R^2 = %.4f, std = %.4f\n", r.Name, r.Mean, r.Std)
			}

			best := cmp.Best()
			a, err := ml.NewArtifact(best.Name, cmp.Model, cmp.Samples, best.Mean, best.Std)
			if err != nil {
				return err
			}
			if err := ml.SaveArtifact(outPath, a); err != nil {
				return err
			}

			fmt.Fprintln(out)
			if err := ml.WriteSummary(out, cmp); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nSaved best model '%s' to %s\n", best.Name, outPath)

			if plotPath == "" {
				return nil
			}
			if err := ml.PlotComparison(cmp, plotPath); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved model comparison plot to %s\n", plotPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", defaultDataPath, "CSV с обучающими данными")
	cmd.Flags().StringVar(&outPath, "out", defaultModelPath, "путь для сохранения лучшей модели")
	cmd.Flags().StringVar(&plotPath, "plot", defaultPlotPath, "PNG с графиком сравнения (пусто - не строить)")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Вывести bcrypt-хеш пароля для HR_AUTH_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !auth.IsPasswordComplex(args[0]) {
				slog.Warn("Пароль слишком простой: нужно не менее 8 символов, буквы, цифры и спецсимволы")
			}
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return fmt.Errorf("не удалось захешировать пароль: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fluently/internal/config"
	"fluently/internal/fileutil"
	"fluently/internal/model"
)

func newModelCommand(ctx *commandContext) *cobra.Command {
	modelCmd := &cobra.Command{
		Use:   "model",
		Short: "Scoring model utilities",
	}

	modelCmd.AddCommand(newModelInitCommand(ctx))
	modelCmd.AddCommand(newModelShowCommand(ctx))

	return modelCmd
}

func newModelInitCommand(ctx *commandContext) *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the bundled sample model asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				target = cfg.Model.Path
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve model path: %w", err)
				}
				target = expanded
			}

			if overwrite {
				// Keep the previous asset around as <path>.bak so a bad
				// overwrite is recoverable.
				if _, err := os.Stat(target); err == nil {
					if err := fileutil.CopyFile(target, target+".bak"); err != nil {
						return fmt.Errorf("back up existing model: %w", err)
					}
					if err := os.Remove(target); err != nil {
						return fmt.Errorf("remove existing model: %w", err)
					}
				}
			}
			if err := model.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample model to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the model asset")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing model asset")
	return cmd
}

func newModelShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the configured model's version and labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			mdl, err := model.Load(cfg.Model.Path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Model path: %s\n", cfg.Model.Path)
			fmt.Fprintf(out, "Version:    %d\n", mdl.Version())
			fmt.Fprintf(out, "Labels:     %s\n", strings.Join(mdl.LabelNames(), ", "))
			return nil
		},
	}
}

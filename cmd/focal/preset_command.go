package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"focal/internal/config"
	"focal/internal/preset"
)

func newPresetCommand(ctx *commandContext) *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Inspect and protect XMP presets",
	}

	presetCmd.AddCommand(newPresetShowCommand(ctx))
	presetCmd.AddCommand(newPresetEncryptCommand())
	presetCmd.AddCommand(newPresetDecryptCommand())
	presetCmd.AddCommand(newPresetKeygenCommand())

	return presetCmd
}

func newPresetShowCommand(ctx *commandContext) *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "show [path]",
		Short: "Show the adjustments a preset applies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				expanded, err := config.ExpandPath(args[0])
				if err != nil {
					return err
				}
				path = expanded
			} else {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				path = cfg.Paths.PresetPath
			}

			loaded, err := preset.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			name := strings.TrimSpace(loaded.Name)
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Fprintf(out, "Preset: %s\n", name)
			fmt.Fprintf(out, "Source: %s\n", path)

			rows := make([][]string, 0, len(preset.Kinds()))
			for _, kind := range preset.Kinds() {
				value := loaded.Value(kind)
				if value == 0 && !showAll {
					continue
				}
				rows = append(rows, []string{
					string(kind),
					strconv.FormatFloat(value, 'f', -1, 64),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No adjustments; preset is an identity")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Adjustment", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "Include zero-valued adjustments")
	return cmd
}

func newPresetEncryptCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "encrypt <preset.xmp>",
		Short: "Encrypt a preset with the key from " + preset.KeyEnvVar,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cipher, err := preset.NewCipherFromEnv()
			if err != nil {
				return err
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			written, err := cipher.EncryptFile(source, strings.TrimSpace(outputPath))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Encrypted preset written to %s\n", written)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination path (default: source path + .encrypted)")
	return cmd
}

func newPresetDecryptCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "decrypt <preset.xmp.encrypted>",
		Short: "Decrypt a preset with the key from " + preset.KeyEnvVar,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cipher, err := preset.NewCipherFromEnv()
			if err != nil {
				return err
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			written, err := cipher.DecryptFile(source, strings.TrimSpace(outputPath))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Decrypted preset written to %s\n", written)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination path (default: source path without .encrypted)")
	return cmd
}

func newPresetKeygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random preset key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := preset.GenerateKey()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, key)
			fmt.Fprintf(cmd.ErrOrStderr(), "Export it before encrypting or loading encrypted presets:\n  export %s=%s\n", preset.KeyEnvVar, key)
			return nil
		},
	}
}

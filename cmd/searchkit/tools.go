package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brizzai/searchkit/internal/config"
	"github.com/brizzai/searchkit/internal/logger"
	"github.com/brizzai/searchkit/internal/openapi"
	"github.com/brizzai/searchkit/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and select the operation tools served from an OpenAPI document",
	}
	cmd.AddCommand(newToolsListCmd(), newToolsSelectCmd())
	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the operation tools after applying the selection file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadToolsConfig(cmd)
			if err != nil {
				return err
			}
			catalog, err := openapi.NewConfiguredCatalog(cfg)
			if err != nil {
				return err
			}

			data := pterm.TableData{{"TOOL", "METHOD", "PATH", "DESCRIPTION"}}
			for _, op := range catalog.Operations() {
				data = append(data, []string{op.Tool.Name, op.Method, op.Path, firstLine(op.Description)})
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return fmt.Errorf("render table: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newToolsSelectCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Pick operations and edit their descriptions interactively",
		Long: `select opens a terminal picker over every operation of the OpenAPI
document. x toggles an operation, e edits its description and ctrl+s writes
the selection file. An existing --selection-file is used as the starting point.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadToolsConfig(cmd)
			if err != nil {
				return err
			}
			sel, err := openapi.LoadSelection(cfg.Server.SelectionFile)
			if err != nil {
				return err
			}
			catalog := openapi.NewCatalog(nil)
			if err := catalog.LoadFile(cfg.Server.OpenAPIFile); err != nil {
				return err
			}
			if out == "" {
				out = cfg.Server.SelectionFile
			}
			if out == "" {
				out = "selection.yaml"
			}

			ops := catalog.Operations()
			final, err := tea.NewProgram(tui.NewPicker(ops, sel, out), tea.WithAltScreen()).Run()
			if err != nil {
				return fmt.Errorf("run picker: %w", err)
			}
			picker, ok := final.(tui.Picker)
			if !ok || !picker.Saved() {
				pterm.Warning.Println("Selection not saved")
				return nil
			}
			kept := 0
			for _, r := range picker.Selection().Routes {
				kept += len(r.Methods)
			}
			pterm.Info.Printfln("Kept %s operations out of %s, written to %s.",
				pterm.Green(kept), pterm.Green(len(ops)), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Selection file to write (defaults to --selection-file or selection.yaml)")
	return cmd
}

func loadToolsConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return nil, err
	}
	if cfg.Server.OpenAPIFile == "" {
		return nil, errors.New("an OpenAPI document is required, supply it with --openapi-file")
	}
	return cfg, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rajasatyajit/ProtectLife/internal/assistant"
	"github.com/rajasatyajit/ProtectLife/internal/gateway"
	"github.com/rajasatyajit/ProtectLife/internal/models"
)

// newAssistant builds the assistant from configuration. With --offline the
// hosted model is never contacted.
func newAssistant(cmd *cobra.Command) (*assistant.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	offline, _ := cmd.Flags().GetBool("offline")
	if offline {
		return assistant.New(gateway.Disabled{}), nil
	}
	return assistant.New(gateway.New(gatewayConfig(cfg.AI))), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func newAnalyzeCmd() *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "analyze TITLE DESCRIPTION",
		Short: "Classify a hazard report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newAssistant(cmd)
			if err != nil {
				return err
			}
			analysis, err := svc.Analyze(cmd.Context(), models.ReportDraft{
				Title:       args[0],
				Description: args[1],
				Location:    location,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), analysis)
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "where the hazard was observed")
	cmd.Flags().Bool("offline", false, "use local rules only")
	return cmd
}

func newEnhanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enhance TITLE DESCRIPTION",
		Short: "Rewrite a report description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newAssistant(cmd)
			if err != nil {
				return err
			}
			enhanced, err := svc.Enhance(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), enhanced)
		},
	}
	cmd.Flags().Bool("offline", false, "use local rules only")
	return cmd
}

func newAdviseCmd() *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "advise QUESTION...",
		Short: "Answer a safety question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newAssistant(cmd)
			if err != nil {
				return err
			}
			advice, err := svc.Advise(cmd.Context(), strings.Join(args, " "), location)
			if err != nil {
				return err
			}
			if advice.FallbackMode {
				fmt.Fprintln(cmd.ErrOrStderr(), "(réponse locale)")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), advice.Advice)
			return err
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "commune or neighbourhood")
	cmd.Flags().Bool("offline", false, "use local rules only")
	return cmd
}

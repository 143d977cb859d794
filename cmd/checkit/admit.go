package main

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/checkit/internal/app"
	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/intake"
)

func newAdmitCmd(root *rootOptions) *cobra.Command {
	var (
		protocol string
		duration int
	)

	cmd := &cobra.Command{
		Use:   "admit DOMAIN...",
		Short: "Start monitoring one or more domains",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				for _, d := range args {
					res, err := a.Admit(ctx, domain.AdmissionRequest{
						Domain:        d,
						Protocol:      domain.Protocol(protocol),
						DurationHours: duration,
					})
					if err != nil {
						return err
					}
					printAdmission(res)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&protocol, "protocol", "", "http or https (default CHECKIT_DEFAULT_PROTOCOL)")
	cmd.Flags().IntVar(&duration, "duration", 0, "monitoring window in hours (default CHECKIT_DEFAULT_DURATION_HOURS)")
	return cmd
}

func printAdmission(res intake.Result) {
	switch res.Outcome {
	case intake.OutcomeAdmitted:
		pterm.Success.Printfln("%s admitted for %dh (id %s)", res.Record.Domain, res.Record.DurationHours, res.Record.ID)
	case intake.OutcomeDuplicate, intake.OutcomeAlreadyActive:
		id := ""
		if res.Record != nil {
			id = res.Record.ID
		}
		pterm.Warning.Printfln("%s not admitted: %s (%s, existing id %s)", res.Request.Domain, res.Reason, res.Outcome, id)
	default:
		pterm.Error.Printfln("%s rejected: %s", res.Request.Domain, res.Reason)
	}
}

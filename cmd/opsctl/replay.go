package main

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	wh "github.com/fatflowers/staypay/internal/app/service/webhook_handler"
)

type replayOutput struct {
	EventID          string `json:"event_id"`
	EventType        string `json:"event_type"`
	Kind             string `json:"kind"`
	Outcome          string `json:"outcome"`
	AlreadyProcessed bool   `json:"already_processed"`
	Processed        bool   `json:"processed"`
	Error            string `json:"error,omitempty"`
}

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <event-id>",
		Short: "Re-run a stored webhook event that has not been processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var h *wh.Handler
			return withApp(cmd.Context(), func(ctx context.Context) error {
				res, err := h.Replay(ctx, args[0])
				if err != nil {
					return err
				}
				out := replayOutput{
					EventID:          res.EventID,
					EventType:        res.EventType,
					Kind:             res.Kind.String(),
					Outcome:          string(res.Outcome),
					AlreadyProcessed: res.AlreadyProcessed,
					Processed:        res.StatusCode == http.StatusOK,
				}
				if res.Err != nil {
					out.Error = res.Err.Error()
				}
				return printJSON(cmd, out)
			}, &h)
		},
	}
}

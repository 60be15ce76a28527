package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	extractionApp "github.com/felixgeelhaar/tempora/internal/extraction/application"
	"github.com/felixgeelhaar/tempora/pkg/observability"
)

var (
	processSender   string
	processSubject  string
	processBody     string
	processTimezone string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run one inbound message through the scheduling pipeline",
	Long: `Extract meeting details from a message, start a scheduling workflow,
place calendar holds and send the time proposal.

The message body comes from --body, or from stdin when the flag is empty:

  tempora process --sender alice@example.com --subject "Quarterly review" \
    --body "Can we sync Tuesday 2-3 PM EST, about 45 min?"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := GetContainer()
		if c == nil {
			return fmt.Errorf("pipeline unavailable: container not initialized")
		}
		ctx := cmd.Context()

		body := processBody
		if body == "" {
			raw, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read message body from stdin: %w", err)
			}
			body = strings.TrimSpace(string(raw))
		}
		if body == "" {
			return fmt.Errorf("message body is empty")
		}

		messageID := uuid.NewString()
		ctx = observability.WithMessageID(ctx, messageID)

		request, err := c.Extractor.Extract(ctx, extractionApp.InboundMessage{
			ID:             messageID,
			Sender:         processSender,
			Subject:        processSubject,
			Body:           body,
			ReceivedAt:     time.Now().UTC(),
			SenderTimezone: processTimezone,
		})
		if err != nil {
			return fmt.Errorf("extract meeting details: %w", err)
		}
		if request == nil {
			fmt.Println("No meeting request detected.")
			return nil
		}

		if err := c.Requests.Save(ctx, request); err != nil {
			return fmt.Errorf("save meeting request: %w", err)
		}

		workflow, err := c.Orchestrator.StartWorkflow(ctx, request)
		if err != nil {
			return fmt.Errorf("start workflow: %w", err)
		}

		fmt.Printf("Meeting request %s\n", request.ID())
		fmt.Printf("  Subject:    %s\n", request.Subject())
		fmt.Printf("  Duration:   %d min\n", request.DurationMinutes())
		fmt.Printf("  Confidence: %d%%\n", request.DetectionConfidence())
		fmt.Printf("Workflow %s (%s) is %s\n", workflow.ID(), workflow.Type(), workflow.State())

		held, err := c.HoldManager.FindForRequest(ctx, request.ID())
		if err != nil {
			return fmt.Errorf("list holds: %w", err)
		}
		for i, hold := range held {
			window := hold.Window()
			fmt.Printf("  Option %d: %s - %s (%s, expires %s)\n",
				i+1,
				window.Start().Format(time.RFC3339),
				window.End().Format(time.RFC3339),
				hold.Status(),
				hold.ExpiresAt().Format(time.RFC3339),
			)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVarP(&processSender, "sender", "s", "", "sender address")
	processCmd.Flags().StringVar(&processSubject, "subject", "", "message subject")
	processCmd.Flags().StringVarP(&processBody, "body", "b", "", "message body (stdin when empty)")
	processCmd.Flags().StringVar(&processTimezone, "timezone", "", "sender IANA timezone, e.g. America/New_York")
}

package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	workflowApp "github.com/felixgeelhaar/tempora/internal/workflow/application"
	workflowDomain "github.com/felixgeelhaar/tempora/internal/workflow/domain"
)

var (
	replyHoldID      string
	replyParticipant string
	replyCounter     string
	replyDecline     bool
)

var replyCmd = &cobra.Command{
	Use:   "reply [request-id]",
	Short: "Feed a recipient reply into a running workflow",
	Long: `Advance a scheduling workflow with a recipient's answer: accept one
of the held time options, counter-propose a different time, or decline.

Examples:
  tempora reply 7d61... --hold 9a20...
  tempora reply 7d61... --counter "how about Thursday at 10am?"
  tempora reply 7d61... --decline`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := GetContainer()
		if c == nil {
			return fmt.Errorf("pipeline unavailable: container not initialized")
		}

		requestID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid request ID: %w", err)
		}

		signal := workflowApp.ReplySignal{
			MeetingRequestID: requestID,
			Participant:      replyParticipant,
			CounterProposal:  replyCounter,
			Decline:          replyDecline,
		}
		if replyHoldID != "" {
			holdID, err := uuid.Parse(replyHoldID)
			if err != nil {
				return fmt.Errorf("invalid hold ID: %w", err)
			}
			signal.HoldID = holdID
		}

		if err := c.Orchestrator.HandleReply(cmd.Context(), signal); err != nil {
			return fmt.Errorf("handle reply: %w", err)
		}

		workflow, err := c.Workflows.FindByMeetingRequestID(cmd.Context(), requestID)
		if err != nil {
			return fmt.Errorf("load workflow: %w", err)
		}
		fmt.Printf("Workflow %s is %s\n", workflow.ID(), workflow.State())
		if workflow.State() == workflowDomain.StateAwaitingReply && len(workflow.PendingParticipants()) > 0 {
			fmt.Printf("  Waiting on: %v\n", workflow.PendingParticipants())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replyCmd)
	replyCmd.Flags().StringVar(&replyHoldID, "hold", "", "accepted hold ID")
	replyCmd.Flags().StringVar(&replyParticipant, "participant", "", "replying participant address")
	replyCmd.Flags().StringVar(&replyCounter, "counter", "", "counter-proposal text")
	replyCmd.Flags().BoolVar(&replyDecline, "decline", false, "decline the meeting")
}

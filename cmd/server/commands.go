package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jahiz-relay/internal/domain"
)

func sendTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-test",
		Short: "Send a test notification and exit",
		Long: `Send one test notification through the full pipeline.

Exits non-zero when the notification could not be delivered.`,
		RunE: runSendTest,
	}
}

func runSendTest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	out := a.dispatcher.SendTest(cmd.Context())
	switch out.Kind {
	case domain.OutcomeDelivered:
		fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent (error id %s)\n", out.ErrorID)
		return nil
	case domain.OutcomeRateLimited:
		return fmt.Errorf("%w: %d remaining", domain.ErrRateLimited, out.Remaining)
	default:
		return fmt.Errorf("test notification failed: %s", out.Reason)
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the Telegram bot credentials",
		Long: `Ask Telegram which bot the configured token belongs to.

Nothing is sent to the chat.`,
		RunE: runVerify,
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	username, ok := a.probe(cmd.Context())
	if !ok {
		return errors.New("could not reach the Telegram bot")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Connected as @%s\n", username)
	return nil
}

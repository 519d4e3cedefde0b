package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "phonemailer",
		Short: "Phone-first identities and messaging notifications",
		Long: `phonemailer derives synthetic email addresses from phone numbers and
sends templated notifications through the messaging gateway.

Example:
  phonemailer serve                       # HTTP API
  phonemailer worker                      # Kafka event worker
  phonemailer email "+1 555 0100"         # print the synthetic email
  phonemailer test-connection --scope eu  # probe gateway credentials`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newEmailCmd())
	root.AddCommand(newTestConnectionCmd())
	root.AddCommand(newSettingsCmd())
	return root
}

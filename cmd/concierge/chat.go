package main

import (
	"github.com/aretw0/concierge/internal/adapters/sqlite"
	"github.com/aretw0/concierge/internal/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	Long: `Starts an interactive conversation. Sensitive actions are shown for approval:
type 'y' to run them, or anything else to reject them with that explanation.
Reusing --thread continues a checkpointed conversation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		opts := cli.ChatOptions{}
		opts.ThreadID, _ = cmd.Flags().GetString("thread")
		opts.UserContextID, _ = cmd.Flags().GetString("patient")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.AutoApprove, _ = cmd.Flags().GetBool("yes")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")

		return cli.RunChat(cmd.Context(), app, opts)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("thread", "t", "", "Thread id (a new one is generated when empty)")
	chatCmd.Flags().StringP("patient", "p", sqlite.DemoPatientID, "Patient id the conversation acts for")
	chatCmd.Flags().Bool("json", false, "Read and write JSON lines")
	chatCmd.Flags().BoolP("yes", "y", false, "Approve sensitive actions without asking")
	chatCmd.Flags().BoolP("quiet", "q", false, "Hide the banner and system messages")
}

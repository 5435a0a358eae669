package main

import (
	"errors"
	"os"

	"github.com/aretw0/concierge/internal/cli"
	"github.com/aretw0/concierge/internal/hospital"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/internal/tools"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/aretw0/concierge/pkg/specialist"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"thread"},
	Short:   "Manage checkpointed threads",
	Long:    `List, inspect, and remove the threads held by the configured checkpoint backend.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all threads",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()
		return cli.ListSessions(cmd.Context(), store, os.Stdout)
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <thread-id>",
	Short: "Print the checkpoint of a thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		var roster *specialist.Roster
		if asGraph, _ := cmd.Flags().GetBool("graph"); asGraph {
			if roster, err = staticRoster(cmd); err != nil {
				return err
			}
		}
		return cli.InspectSession(cmd.Context(), store, args[0], roster, os.Stdout)
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <thread-id>...",
	Short: "Remove one or more threads",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return errors.New("name at least one thread or pass --all")
		}
		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()
		return cli.RemoveSessions(cmd.Context(), store, args, all, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionInspectCmd.Flags().Bool("graph", false, "Render the routing graph with the thread's dialog stack highlighted")
	sessionRmCmd.Flags().Bool("all", false, "Remove every thread")
}

func openStore(cmd *cobra.Command) (ports.CheckpointStore, func() error, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, _, closeStore, err := cli.OpenCheckpointStore(cfg.Checkpoint, cli.NewLogger(cfg))
	return store, closeStore, err
}

// staticRoster builds the hospital roster without opening any service; only
// its topology is used.
func staticRoster(cmd *cobra.Command) (*specialist.Roster, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	db, err := cli.OpenHospital(cmd.Context(), cfg, logging.NewNop())
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return hospital.NewRoster(tools.Services{Hospital: db})
}

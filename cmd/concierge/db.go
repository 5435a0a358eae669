package main

import (
	"fmt"

	"github.com/aretw0/concierge/internal/cli"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the hospital database",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the hospital schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return prepareDB(cmd, false)
	},
}

var dbSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the schema and load demo departments, doctors and a patient",
	RunE: func(cmd *cobra.Command, args []string) error {
		return prepareDB(cmd, true)
	},
}

func prepareDB(cmd *cobra.Command, seed bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Hospital.Seed = seed

	db, err := cli.OpenHospital(cmd.Context(), cfg, cli.NewLogger(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	if seed {
		fmt.Printf("Seeded %s\n", cfg.Hospital.DBPath)
	} else {
		fmt.Printf("Initialized %s\n", cfg.Hospital.DBPath)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbSeedCmd)
}

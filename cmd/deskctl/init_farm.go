package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kiranshivaraju/farmdesk/pkg/client"
)

var (
	initFarmFile string
	initFarmWait bool
)

var initFarmCmd = &cobra.Command{
	Use:   "init-farm",
	Short: "Onboard a farm from a YAML file",
	Long:  "Reads location, farming method and fields from a YAML file, starts farm initialization and, with --wait, follows its progress until it completes, fails or the 90 second poll window closes.",
	RunE:  runInitFarm,
}

var initStatusCmd = &cobra.Command{
	Use:   "init-status JOB_ID",
	Short: "Show the state of a farm initialization job",
	Args:  cobra.ExactArgs(1),
	RunE:  runInitStatus,
}

func init() {
	initFarmCmd.Flags().StringVarP(&initFarmFile, "file", "f", "", "Onboarding YAML file (required)")
	initFarmCmd.Flags().BoolVar(&initFarmWait, "wait", true, "Wait for initialization to finish")

	if err := initFarmCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(initFarmCmd, initStatusCmd)
}

func loadOnboarding(path string) (client.Onboarding, error) {
	var in client.Onboarding
	data, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("read onboarding file: %w", err)
	}
	if err := yaml.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("parse onboarding file: %w", err)
	}
	if len(in.Fields) == 0 {
		return in, fmt.Errorf("onboarding file %s lists no fields", path)
	}
	return in, nil
}

func runInitFarm(cmd *cobra.Command, _ []string) error {
	in, err := loadOnboarding(initFarmFile)
	if err != nil {
		return err
	}

	c := newClient()
	jobID, err := c.InitializeFarm(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("start initialization: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "initialization started: %s\n", jobID)
	if !initFarmWait {
		return nil
	}

	outcome, last, err := c.WaitForInitialization(cmd.Context(), jobID, progressPrinter(out))
	if err != nil {
		return err
	}
	switch outcome {
	case client.Succeeded:
		fmt.Fprintln(out, "farm initialized")
	case client.Failed:
		msg := ""
		if last != nil {
			msg = last.Error
		}
		return fmt.Errorf("initialization failed: %s (basic tasks were created where possible)", msg)
	case client.TimedOut:
		fmt.Fprintf(out, "still initializing; check later with: deskctl init-status %s\n", jobID)
	}
	return nil
}

func runInitStatus(cmd *cobra.Command, args []string) error {
	st, err := newClient().InitializationStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d%% %s %s\n", st.Status, st.Progress, st.CurrentStep, st.Error)
	return nil
}

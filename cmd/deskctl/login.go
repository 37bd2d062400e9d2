package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and print a session token",
	Long:  "Exchanges email and password for a session token. Export it as FARMDESK_TOKEN for later commands.",
	RunE:  runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email (required)")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password (required)")

	if err := loginCmd.MarkFlagRequired("email"); err != nil {
		panic(fmt.Sprintf("failed to mark email flag as required: %v", err))
	}
	if err := loginCmd.MarkFlagRequired("password"); err != nil {
		panic(fmt.Sprintf("failed to mark password flag as required: %v", err))
	}

	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	s, err := newClient().Login(cmd.Context(), loginEmail, loginPassword)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), s.Token)
	return nil
}

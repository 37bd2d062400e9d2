// Package main is deskctl, a command-line client for the Farmer's Desk API.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/farmdesk/pkg/client"
)

var (
	serverURL string
	token     string
)

var rootCmd = &cobra.Command{
	Use:          "deskctl",
	Short:        "Farmer's Desk command-line client",
	Long:         "deskctl onboards a farm, creates plans and requests yield predictions against a Farmer's Desk server, waiting for background work to finish.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("FARMDESK_URL", "http://localhost:8080"), "Server base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("FARMDESK_TOKEN"), "Session token (or FARMDESK_TOKEN)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newClient() *client.Client {
	c := client.New(serverURL)
	c.Token = token
	return c
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// progressPrinter renders the server-reported progress of a poll loop.
func progressPrinter(w io.Writer) func(client.Observation) {
	return func(o client.Observation) {
		switch {
		case o.Step != "":
			fmt.Fprintf(w, "  %3d%%  %s\n", o.Progress, o.Step)
		default:
			fmt.Fprintf(w, "  %s\n", o.Status)
		}
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/farmdesk/pkg/client"
)

var (
	planTitle    string
	planType     string
	planFieldID  string
	planStart    string
	planDuration int
	planPriority string
	planWait     bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Create and inspect farming plans",
}

var planCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a plan and wait for its tasks",
	Long:  "Creates a plan for one field. Tasks are generated in the background; with --wait the command polls until the plan is ready, then lists its tasks.",
	RunE:  runPlanCreate,
}

var planStatusCmd = &cobra.Command{
	Use:   "status PLAN_ID",
	Short: "Show a plan's generation status",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanStatus,
}

func init() {
	planCreateCmd.Flags().StringVar(&planTitle, "title", "", "Plan title (required)")
	planCreateCmd.Flags().StringVar(&planType, "type", "complete-season", "Plan type: irrigation, fertilizer, pest-control, complete-season, custom")
	planCreateCmd.Flags().StringVar(&planFieldID, "field", "", "Field ID (required)")
	planCreateCmd.Flags().StringVar(&planStart, "start", time.Now().Format(time.DateOnly), "Start date, YYYY-MM-DD")
	planCreateCmd.Flags().IntVar(&planDuration, "duration", 30, "Duration in days")
	planCreateCmd.Flags().StringVar(&planPriority, "priority", "", "Priority: low, medium, high")
	planCreateCmd.Flags().BoolVar(&planWait, "wait", true, "Wait for the plan to be generated")

	if err := planCreateCmd.MarkFlagRequired("title"); err != nil {
		panic(fmt.Sprintf("failed to mark title flag as required: %v", err))
	}
	if err := planCreateCmd.MarkFlagRequired("field"); err != nil {
		panic(fmt.Sprintf("failed to mark field flag as required: %v", err))
	}

	planCmd.AddCommand(planCreateCmd, planStatusCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlanCreate(cmd *cobra.Command, _ []string) error {
	fieldID, err := uuid.Parse(planFieldID)
	if err != nil {
		return fmt.Errorf("invalid field: %w", err)
	}

	c := newClient()
	ref, err := c.CreatePlan(cmd.Context(), client.PlanRequest{
		Title:     planTitle,
		PlanType:  planType,
		FieldID:   fieldID,
		StartDate: planStart,
		Duration:  planDuration,
		Priority:  planPriority,
	})
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "plan %s created (%s)\n", ref.ID, ref.Status)
	if !planWait {
		return nil
	}

	outcome, plan, err := c.WaitForPlan(cmd.Context(), ref.ID, nil)
	if err != nil {
		return err
	}
	switch outcome {
	case client.Succeeded:
		fmt.Fprintf(out, "plan ready with %d tasks\n", len(plan.Tasks))
		for _, t := range plan.Tasks {
			fmt.Fprintf(out, "  %s  %-6s %s\n", t.ScheduledDate.Format(time.DateOnly), t.Priority, t.Title)
		}
	case client.Failed:
		return fmt.Errorf("plan generation failed; the plan was kept as a draft and can be regenerated")
	case client.TimedOut:
		fmt.Fprintln(out, "tasks are still being generated; check later with: deskctl plan status "+ref.ID.String())
	}
	return nil
}

func runPlanStatus(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid plan id: %w", err)
	}
	st, err := newClient().PlanStatus(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s ready=%t tasks=%d progress=%d%%\n",
		st.Status, st.IsReady, st.TaskCount, st.Progress.Percentage)
	return nil
}

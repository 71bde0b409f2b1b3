package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trustplane/trustplane/internal/controlplane"
	"github.com/trustplane/trustplane/internal/models"
)

var routeCmd = &cobra.Command{
	Use:   "route [capability]",
	Short: "Ask the policy which server would handle a capability",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoute,
}

var execCmd = &cobra.Command{
	Use:   "exec [capability] [prompt]",
	Short: "Route and execute a task, feeding the outcome back into reputation",
	Args:  cobra.ExactArgs(2),
	RunE:  runExec,
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback [server-id]",
	Short: "Submit raw outcome telemetry for a server",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedback,
}

var (
	fbStatus     string
	fbLatency    float64
	fbConfidence float64
	fbCost       float64
)

func init() {
	feedbackCmd.Flags().StringVar(&fbStatus, "status", "success", "Outcome status (success, error, timeout)")
	feedbackCmd.Flags().Float64Var(&fbLatency, "latency", 0, "Observed latency in seconds")
	feedbackCmd.Flags().Float64Var(&fbConfidence, "confidence", 0, "Backend-declared confidence")
	feedbackCmd.Flags().Float64Var(&fbCost, "cost", 0, "Compute cost units")
}

func runRoute(cmd *cobra.Command, args []string) error {
	body, err := apiPost("/route", map[string]string{"capability": args[0]})
	if err != nil {
		return err
	}

	var resp struct {
		Decision   models.Decision    `json:"decision"`
		Candidates []models.Candidate `json:"candidates"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	printCandidates(resp.Candidates)
	printDecision(resp.Decision)
	return nil
}

func runExec(cmd *cobra.Command, args []string) error {
	body, err := apiPost("/tasks/execute", map[string]string{
		"capability": args[0],
		"prompt":     args[1],
	})
	if err != nil {
		return err
	}

	var result controlplane.TaskResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	printCandidates(result.Candidates)
	printDecision(result.Decision)
	if result.Decision.Blocked {
		return nil
	}

	fmt.Printf("\nOutput: %s\n", result.Output)
	if fb := result.Feedback; fb != nil {
		fmt.Printf("Telemetry: status=%s latency=%.3fs satisfaction=%.4f\n",
			fb.Transaction.Status, fb.Transaction.LatencySeconds, fb.Transaction.Satisfaction)
		fmt.Printf("Reputation: %.4f -> %.4f\n", fb.PreviousScore, fb.NewScore)
	}
	return nil
}

func runFeedback(cmd *cobra.Command, args []string) error {
	body, err := apiPost("/feedback", map[string]interface{}{
		"server_id":          args[0],
		"status":             fbStatus,
		"latency_sec":        fbLatency,
		"confidence":         fbConfidence,
		"compute_cost_units": fbCost,
	})
	if err != nil {
		return err
	}

	var result controlplane.FeedbackResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	if !result.Applied {
		fmt.Printf("Feedback dropped: %s is not registered\n", args[0])
		return nil
	}
	fmt.Printf("Satisfaction: %.4f\n", result.Transaction.Satisfaction)
	fmt.Printf("Reputation:   %.4f -> %.4f\n", result.PreviousScore, result.NewScore)
	return nil
}

func printCandidates(candidates []models.Candidate) {
	if len(candidates) == 0 {
		fmt.Println("No servers offer this capability.")
		return
	}
	fmt.Println("Candidates:")
	for _, c := range candidates {
		fmt.Printf("  %-20s score=%.4f cost=%.4f\n", c.ServerID, c.Score, c.UnitCost)
	}
}

func printDecision(d models.Decision) {
	switch {
	case d.Blocked && d.Reason == models.BlockNoProvider:
		fmt.Println("Decision: BLOCKED (no provider)")
	case d.Blocked:
		fmt.Println("Decision: BLOCKED (all candidates below threshold)")
	case d.Probe:
		fmt.Printf("Decision: PROBE %s (score %.4f, below threshold)\n", d.ServerID, d.Score)
	default:
		fmt.Printf("Decision: SELECT %s (score %.4f)\n", d.ServerID, d.Score)
	}
}

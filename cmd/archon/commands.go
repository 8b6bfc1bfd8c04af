package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archonhq/archon/internal/config"
)

// --- recommend ---

var recommendCmd = &cobra.Command{
	Use:   "recommend <query>",
	Short: "Request cloud architecture recommendations",
	Long: `Request cloud architecture recommendations for an infrastructure query.

Examples:
  archon recommend "scalable web app for 10k users, budget-conscious"
  archon recommend "high performance API backend" --provider aws
  archon recommend "internal tool" --budget "under $200/month"
  archon recommend "e-commerce platform" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		contextStr, _ := cmd.Flags().GetString("context")
		provider, _ := cmd.Flags().GetString("provider")
		budget, _ := cmd.Flags().GetString("budget")
		rawJSON, _ := cmd.Flags().GetBool("json")

		queryContext := map[string]any{}
		if contextStr != "" {
			if err := json.Unmarshal([]byte(contextStr), &queryContext); err != nil {
				return fmt.Errorf("invalid --context JSON: %w", err)
			}
		}
		if provider != "" {
			queryContext["cloud_provider"] = provider
		}
		if budget != "" {
			queryContext["budget"] = budget
		}

		req := map[string]any{"query": query}
		if len(queryContext) > 0 {
			req["context"] = queryContext
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/recommendations", req)
		if err != nil {
			return err
		}

		if rawJSON {
			var state any
			if err := decodeJSON(resp, &state); err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		}

		var state sessionView
		if err := decodeJSON(resp, &state); err != nil {
			return err
		}

		printSession(state)
		return nil
	},
}

func init() {
	recommendCmd.Flags().String("context", "", "extra context as a JSON object")
	recommendCmd.Flags().String("provider", "", "preferred cloud provider (aws or azure)")
	recommendCmd.Flags().String("budget", "", "budget constraints in natural language")
	recommendCmd.Flags().Bool("json", false, "print the full session state as JSON")
}

// sessionView is the subset of session state the CLI renders.
type sessionView struct {
	ID              string `json:"id"`
	Query           string `json:"query"`
	CurrentStep     string `json:"current_step"`
	SelectedID      string `json:"selected_id"`
	Recommendations []struct {
		ID              string  `json:"id"`
		Title           string  `json:"title"`
		Description     string  `json:"description"`
		ConfidenceScore float64 `json:"confidence_score"`
		EstimatedCost   float64 `json:"estimated_cost"`
	} `json:"recommendations"`
	Artifacts map[string]map[string]string `json:"artifacts"`
	Templates []struct {
		Name      string `json:"name"`
		Framework string `json:"framework"`
	} `json:"templates"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func printSession(state sessionView) {
	fmt.Printf("%s %s\n", colorize(colorBold, "Session"), state.ID)
	fmt.Printf("%s %s\n", colorize(colorBold, "Step:"), state.CurrentStep)

	for _, rec := range state.Recommendations {
		marker := " "
		if rec.ID == state.SelectedID {
			marker = colorize(colorGreen, "*")
		}
		fmt.Printf("\n%s %s [confidence: %.2f, est. $%.2f/mo]\n",
			marker, colorize(colorBold, rec.Title), rec.ConfidenceScore, rec.EstimatedCost)
		desc := rec.Description
		if len(desc) > 200 {
			desc = desc[:200] + "..."
		}
		fmt.Printf("  %s\n", desc)
	}

	if len(state.Artifacts) > 0 {
		fmt.Printf("\n%s\n", colorize(colorBold, "Artifacts:"))
		for provider, files := range state.Artifacts {
			for name := range files {
				fmt.Printf("  %s/%s\n", provider, name)
			}
		}
	}
	for _, tmpl := range state.Templates {
		fmt.Printf("%s %s (%s)\n", colorize(colorBold, "Template:"), tmpl.Name, tmpl.Framework)
	}

	for _, w := range state.Warnings {
		printWarning("%s", w)
	}
	for _, e := range state.Errors {
		printError("%s", e)
	}
}

// --- feedback ---

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Rate a recommendation to shape future runs",
	Long: `Rate a recommendation from a previous run. Ratings feed the learning
engine: 4 and above is positive, 2 and below negative.

Example:
  archon feedback --session <id> --recommendation <id> --rating 4.5 --text "great cost balance"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		recommendationID, _ := cmd.Flags().GetString("recommendation")
		rating, _ := cmd.Flags().GetFloat64("rating")
		text, _ := cmd.Flags().GetString("text")
		contextStr, _ := cmd.Flags().GetString("context")

		if sessionID == "" {
			return fmt.Errorf("--session is required")
		}

		req := map[string]any{
			"session_id":        sessionID,
			"recommendation_id": recommendationID,
			"rating":            rating,
		}
		if text != "" {
			req["feedback_text"] = text
		}
		if contextStr != "" {
			var feedbackContext map[string]any
			if err := json.Unmarshal([]byte(contextStr), &feedbackContext); err != nil {
				return fmt.Errorf("invalid --context JSON: %w", err)
			}
			req["context"] = feedbackContext
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/feedback", req)
		if err != nil {
			return err
		}

		var result struct {
			FeedbackID     string `json:"feedback_id"`
			Classification string `json:"classification"`
			InsightsAdded  int    `json:"insights_added"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Recorded %s feedback %s (%d new insights)",
			result.Classification, result.FeedbackID, result.InsightsAdded)
		return nil
	},
}

func init() {
	feedbackCmd.Flags().String("session", "", "session id from a previous recommend run")
	feedbackCmd.Flags().String("recommendation", "", "recommendation id being rated")
	feedbackCmd.Flags().Float64("rating", 0, "rating from 1 to 5")
	feedbackCmd.Flags().String("text", "", "free-form feedback text")
	feedbackCmd.Flags().String("context", "", "feedback context as a JSON object")
}

// --- learning ---

var learningCmd = &cobra.Command{
	Use:   "learning",
	Short: "Show what has been learned from feedback",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/learning")
		if err != nil {
			return err
		}

		var summary any
		if err := decodeJSON(resp, &summary); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

// --- sessions ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect recommendation sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/sessions")
		if err != nil {
			return err
		}

		var sessions []struct {
			SessionID            string `json:"session_id"`
			Status               string `json:"status"`
			CurrentStep          string `json:"current_step"`
			RecommendationsCount int    `json:"recommendations_count"`
			CreatedAt            string `json:"created_at"`
		}
		if err := decodeJSON(resp, &sessions); err != nil {
			return err
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		for _, s := range sessions {
			fmt.Printf("%s  %s  %s  %s  %d recs\n",
				colorize(colorCyan, s.SessionID[:8]),
				s.CreatedAt,
				s.Status,
				s.CurrentStep,
				s.RecommendationsCount,
			)
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the full state of one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/sessions/"+args[0])
		if err != nil {
			return err
		}

		var state any
		if err := decodeJSON(resp, &state); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	},
}

var sessionsResumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Re-run the pipeline for a session from its current step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/sessions/"+args[0]+"/resume", nil)
		if err != nil {
			return err
		}

		var status struct {
			SessionID   string `json:"session_id"`
			Status      string `json:"status"`
			CurrentStep string `json:"current_step"`
		}
		if err := decodeJSON(resp, &status); err != nil {
			return err
		}

		printSuccess("Session %s is %s at step %s", status.SessionID, status.Status, status.CurrentStep)
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsResumeCmd)
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a requirements document",
	Long: `Ingest a requirements document. Extracted text is folded into future
requirement analyses.

Examples:
  archon ingest --text "All services must run in eu-west-1" --title "Compliance"
  archon ingest --url https://example.com/requirements.html
  archon ingest --file ./requirements.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		url, _ := cmd.Flags().GetString("url")
		file, _ := cmd.Flags().GetString("file")
		title, _ := cmd.Flags().GetString("title")

		if text == "" && url == "" && file == "" {
			return fmt.Errorf("one of --text, --url, or --file is required")
		}

		req := map[string]any{
			"source": "cli",
		}
		if title != "" {
			req["title"] = title
		}

		switch {
		case text != "":
			req["type"] = "text"
			req["content"] = text
		case url != "":
			req["type"] = "url"
			req["url"] = url
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			if strings.EqualFold(filepath.Ext(file), ".pdf") {
				req["type"] = "pdf"
				req["content"] = base64.StdEncoding.EncodeToString(data)
			} else {
				req["type"] = "text"
				req["content"] = string(data)
			}
			if title == "" {
				req["title"] = file
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/ingest", req)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Queued doc %s", result["id"])
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("text", "", "text content to ingest")
	ingestCmd.Flags().String("url", "", "URL to fetch and ingest")
	ingestCmd.Flags().String("file", "", "file path to ingest (.pdf files are sent as PDF)")
	ingestCmd.Flags().String("title", "", "title for the document")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

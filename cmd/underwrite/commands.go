package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/underwrite/internal/config"
	"github.com/kalambet/underwrite/internal/validate"
)

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a contract document for a contact",
	Long: `Validate a contract document for a contact.

Examples:
  underwrite validate --contact 12345 --file ./contract.pdf
  underwrite validate --contact 12345 --url https://docs.example.com/contract.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		contactID, _ := cmd.Flags().GetString("contact")
		file, _ := cmd.Flags().GetString("file")
		docURL, _ := cmd.Flags().GetString("url")

		if contactID == "" {
			return fmt.Errorf("--contact is required")
		}
		if file == "" && docURL == "" {
			return fmt.Errorf("one of --file or --url is required")
		}

		req := map[string]any{
			"contact_id": contactID,
		}
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading document: %w", err)
			}
			req["document"] = base64.StdEncoding.EncodeToString(data)
		} else {
			req["document_url"] = docURL
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/validate", req)
		if err != nil {
			return err
		}

		var run validate.Run
		if err := decodeJSON(resp, &run); err != nil {
			return err
		}

		printRun(&run)
		if run.Overall == validate.StatusFail {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().String("contact", "", "CRM contact id")
	validateCmd.Flags().String("file", "", "path to the contract PDF")
	validateCmd.Flags().String("url", "", "URL to fetch the contract PDF from")
}

// --- runs ---

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect past validation runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent validation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		contactID, _ := cmd.Flags().GetString("contact")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/runs?limit=%d", limit)
		if contactID != "" {
			path += "&contact_id=" + url.QueryEscape(contactID)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var runs []validate.Run
		if err := decodeJSON(resp, &runs); err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs found.")
			return nil
		}

		for _, run := range runs {
			fmt.Printf("%s  %s  %-8s %s\n",
				colorize(colorCyan, run.ID[:8]),
				run.StartedAt.Format("2006-01-02 15:04:05"),
				colorize(statusColor(run.Overall), string(run.Overall)),
				run.ContactID,
			)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single validation run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/runs/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			var run any
			if err := decodeJSON(resp, &run); err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		var run validate.Run
		if err := decodeJSON(resp, &run); err != nil {
			return err
		}
		printRun(&run)
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsListCmd.Flags().String("contact", "", "filter by contact id")
	runsShowCmd.Flags().Bool("json", false, "print the raw run JSON")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}

// --- templates ---

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List registered prompt templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/templates")
		if err != nil {
			return err
		}

		var templates []struct {
			ID       string   `json:"id"`
			Version  string   `json:"version"`
			Category string   `json:"category"`
			Required []string `json:"required_variables"`
		}
		if err := decodeJSON(resp, &templates); err != nil {
			return err
		}

		for _, tmpl := range templates {
			fmt.Printf("%s@%s  %-12s requires: %v\n",
				colorize(colorBold, tmpl.ID),
				tmpl.Version,
				tmpl.Category,
				tmpl.Required,
			)
		}
		return nil
	},
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

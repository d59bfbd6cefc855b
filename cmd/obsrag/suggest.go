package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/obsrag/ai/suggest"
	apiv1 "github.com/hrygo/obsrag/server/router/api/v1"
)

var (
	suggestText string
	suggestTopK int
	suggestJSON bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [file]",
	Short: "Suggest tags and links for a note",
	Long:  "Suggest tags and links for note text taken from --text, a markdown file, or stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), terminationSignals...)
		defer stop()

		text := suggestText
		filename := ""
		if text == "" {
			if len(args) == 1 {
				raw, err := os.ReadFile(args[0])
				if err != nil {
					return errors.Wrapf(err, "failed to read %s", args[0])
				}
				text = string(raw)
				filename = filepath.Base(args[0])
			} else {
				raw, err := io.ReadAll(os.Stdin)
				if err != nil {
					return errors.Wrap(err, "failed to read stdin")
				}
				text = string(raw)
			}
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("nothing to suggest for: pass --text, a file, or pipe stdin")
		}

		st, err := openStore(ctx, p)
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := apiv1.NewAPIV1Service(ctx, p, st)
		if err != nil {
			return err
		}

		result, err := svc.Engine.Suggest(ctx, suggest.Request{Text: text, TopK: suggestTopK, Filename: filename})
		if err != nil {
			return err
		}

		if suggestJSON {
			out, err := json.MarshalIndent(apiv1.NewSuggestResponse(result), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		printSuggestions(result)
		return nil
	},
}

func printSuggestions(result *suggest.Result) {
	if len(result.Tags) == 0 {
		fmt.Println("No tag suggestions.")
	} else {
		fmt.Println("Tags:")
		for _, c := range result.Tags {
			fmt.Printf("  %-28s %s\n", c.Name, describeCandidate(c))
		}
	}

	if len(result.Links) > 0 {
		fmt.Println("Links:")
		for _, c := range result.Links {
			fmt.Printf("  %-28s %s\n", c.Name, describeCandidate(c))
		}
	}

	if result.Decision != nil {
		fmt.Println("Model decision:")
		if len(result.Decision.ExistingTags) > 0 {
			fmt.Printf("  existing: %s\n", strings.Join(result.Decision.ExistingTags, ", "))
		}
		if len(result.Decision.NewTags) > 0 {
			fmt.Printf("  new:      %s\n", strings.Join(result.Decision.NewTags, ", "))
		}
		if result.Decision.Reasoning != "" {
			fmt.Printf("  because:  %s\n", result.Decision.Reasoning)
		}
	}
}

func describeCandidate(c suggest.Candidate) string {
	if c.Score != nil {
		return fmt.Sprintf("%.2f (%s)", *c.Score, c.Source)
	}
	return fmt.Sprintf("-    (%s)", c.Source)
}

func init() {
	suggestCmd.Flags().StringVar(&suggestText, "text", "", "note text to suggest for")
	suggestCmd.Flags().IntVar(&suggestTopK, "top-k", 0, "retrieval depth override")
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "print the API response JSON")
	rootCmd.AddCommand(suggestCmd)
}

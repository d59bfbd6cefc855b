package main

import (
	"fmt"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	apiv1 "github.com/hrygo/obsrag/server/router/api/v1"
)

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Transcribe a document and write it into the vault as a tagged note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), terminationSignals...)
		defer stop()

		st, err := openStore(ctx, p)
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := apiv1.NewAPIV1Service(ctx, p, st)
		if err != nil {
			return err
		}
		if svc.Processor == nil {
			return errors.New("document processing is not configured (set OBSRAG_LLM_API_KEY or OBSRAG_OCR_PROVIDER=text)")
		}

		result, err := svc.Processor.Process(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Note written: %s\n", result.NotePath)
		if len(result.Tags) > 0 {
			fmt.Printf("Tags: %s\n", strings.Join(result.Tags, ", "))
		}
		if len(result.References) > 0 {
			fmt.Printf("References: %s\n", strings.Join(result.References, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}

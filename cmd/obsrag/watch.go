package main

import (
	"context"
	"fmt"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/obsrag/plugin/watcher"
	apiv1 "github.com/hrygo/obsrag/server/router/api/v1"
)

var watchDir string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a folder and process every new document dropped into it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		if watchDir != "" {
			p.WatchDir = watchDir
		}
		if p.WatchDir == "" {
			return errors.New("watch folder is required (--dir or OBSRAG_WATCH_DIR)")
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

		w, err := watcher.New(watcher.Config{
			Dir:      p.WatchDir,
			Interval: time.Duration(p.WatchPollSeconds) * time.Second,
		}, watcher.ProcessorFunc(func(ctx context.Context, path string) error {
			_, err := svc.Processor.Process(ctx, path)
			return err
		}))
		if err != nil {
			return err
		}

		fmt.Printf("Watching %s every %ds, Ctrl-C to stop\n", p.WatchDir, p.WatchPollSeconds)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "folder to watch for incoming documents")
	rootCmd.AddCommand(watchCmd)
}

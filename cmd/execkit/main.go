package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/execkit/execkit"
	"github.com/execkit/execkit/model/task"
	"github.com/execkit/execkit/service/batch"
)

var (
	version = "0.1.0"

	configURL   string
	taskCount   int
	concurrency int
	traceFile   string

	rootCmd = &cobra.Command{
		Use:   "execkit",
		Short: "execkit - process-local task execution engine",
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a synthetic workload through the engine and report counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			config := execkit.DefaultConfig()
			if configURL != "" {
				loaded, err := execkit.LoadConfig(ctx, configURL)
				if err != nil {
					return err
				}
				config = loaded
			}
			options := []execkit.Option{execkit.WithConfig(config)}
			if traceFile != "" {
				options = append(options, execkit.WithTracing("execkit", version, traceFile))
			}
			srv, err := execkit.New(options...)
			if err != nil {
				return err
			}
			defer srv.Shutdown(ctx)

			items := make([]batch.Item, 0, taskCount)
			for i := 0; i < taskCount; i++ {
				id := fmt.Sprintf("task-%03d", i)
				items = append(items, batch.Item{
					ID:   id,
					Task: task.New(id, task.WithTimeout(time.Second)),
					Work: func(ctx context.Context) (interface{}, error) {
						select {
						case <-time.After(time.Duration(rand.Intn(50)) * time.Millisecond):
							return id, nil
						case <-ctx.Done():
							return nil, ctx.Err()
						}
					},
				})
			}

			started := time.Now()
			results := srv.RunAll(ctx, items, concurrency)
			elapsed := time.Since(started)

			failed := 0
			for _, result := range results {
				if result.Err != nil {
					failed++
				}
			}
			snapshot := srv.Stats()
			fmt.Printf("ran %v tasks in %v (wave size %v)\n", len(results), elapsed.Round(time.Millisecond), concurrency)
			fmt.Printf("completed=%v failed=%v cancelled=%v retried=%v\n",
				snapshot.Completed, snapshot.Failed, snapshot.Cancelled, snapshot.Retried)
			fmt.Printf("active=%v queued=%v usage=%+v\n", srv.ActiveTasks(), srv.QueuedTasks(), srv.Resources().Usage())
			if failed > 0 {
				return fmt.Errorf("%v tasks failed", failed)
			}
			return nil
		},
	}
)

func init() {
	runCmd.Flags().StringVarP(&configURL, "config", "c", "", "config document URL (any afs scheme)")
	runCmd.Flags().IntVarP(&taskCount, "tasks", "n", 20, "number of synthetic tasks")
	runCmd.Flags().IntVarP(&concurrency, "concurrency", "p", 5, "fan-out wave size")
	runCmd.Flags().StringVar(&traceFile, "trace", "", "write OpenTelemetry spans to this file")
	rootCmd.AddCommand(runCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/facemark/facemark/internal/config"
	"github.com/facemark/facemark/internal/sink"
)

var markCmd = &cobra.Command{
	Use:   "mark <face-id>",
	Short: "Manually record one attendance event",
	Long: `Deliver a single attendance event for the given face id through the
configured sink, bypassing recognition. Useful when someone was
present but not recognized.

Examples:
  facemark mark chetan_yadav
  SINK=csv facemark mark chetan_yadav`,
	Args: cobra.ExactArgs(1),
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)
}

func runMark(cmd *cobra.Command, args []string) error {
	key := args[0]
	cfg := config.Load()

	s, closeSink, err := newSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	ev := sink.Event{
		ID:         uuid.NewString(),
		Key:        key,
		Name:       cases.Title(language.English).String(strings.ReplaceAll(key, "_", " ")),
		Status:     sink.StatusPresent,
		OccurredAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Sink.Timeout)
	defer cancel()

	if err := s.Deliver(ctx, ev); err != nil {
		return fmt.Errorf("failed to record attendance: %w", err)
	}

	fmt.Printf("Attendance marked for %s.\n", ev.Name)
	return nil
}

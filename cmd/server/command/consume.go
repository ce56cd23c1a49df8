package command

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Journal reservation events from the broker",
	Long: `Consumes the reservation events published after every admitted or
cancelled reservation and appends one line per event to
reservations.log in RESERVATION_LOG_DIR. Runs until interrupted.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		runConsumer(ctx)
	},
}

package main

import (
	"github.com/spf13/cobra"

	"telegram-customer-calendar/internal/utils"
)

func main() {
	root := &cobra.Command{
		Use:           "calendar-bot",
		Short:         "Telegram bot for the customer appointment calendar",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	run := newRunCommand()
	root.RunE = run.RunE

	root.AddCommand(run)
	root.AddCommand(newSettingsCommand())
	root.AddCommand(newSendCommand())
	root.AddCommand(newAppointmentCommand())
	root.AddCommand(newStickyCommand())

	utils.Must(root.Execute())
}

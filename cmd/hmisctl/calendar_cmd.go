package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hmis-dev/hmis-sdk/modules/calendar/presentation/controllers"
	"github.com/hmis-dev/hmis-sdk/modules/calendar/services"
	"github.com/hmis-dev/hmis-sdk/pkg/calendar"
)

func newCalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Inspect calendars and convert dates between them",
	}
	cmd.AddCommand(newCalendarListCmd(), newCalendarConvertCmd())
	return cmd
}

func newCalendarListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the supported calendars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := services.NewCalendarService(nil, calendar.All()...)
			for _, c := range svc.GetAllCalendars() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", c.Name(), c.DisplayName())
			}
			return nil
		},
	}
}

func newCalendarConvertCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "convert <yyyy-MM-dd>",
		Short: "Convert a date from one calendar to another",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := controllers.ParseDate(args[0])
			if err != nil {
				return withCode(exitUsage, err)
			}
			svc := services.NewCalendarService(nil, calendar.All()...)
			out, err := svc.ConvertDate(from, to, d)
			if err != nil {
				return withCode(exitUsage, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", calendar.NameISO8601, "Calendar the date is given in")
	cmd.Flags().StringVar(&to, "to", calendar.NameISO8601, "Calendar to convert to")
	return cmd
}

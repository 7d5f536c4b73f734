package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/service"
)

var (
	ticketStatuses []string
	ticketLimit    int
)

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Inspect tickets",
}

var ticketShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one ticket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tickets, closeStore, err := ticketService(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		ticket, err := tickets.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		history, err := tickets.History(cmd.Context(), ticket.TicketID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{"ticket": ticket, "history": history})
	},
}

var ticketListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently modified tickets",
	RunE: func(cmd *cobra.Command, args []string) error {
		tickets, closeStore, err := ticketService(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		filter := service.TicketListFilter{Limit: ticketLimit}
		for _, raw := range ticketStatuses {
			status := domain.TicketStatus(strings.ToUpper(raw))
			if !status.Valid() {
				return fmt.Errorf("unknown status %q", raw)
			}
			filter.Statuses = append(filter.Statuses, status)
		}
		list, err := tickets.List(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), list)
	},
}

func ticketService(cmd *cobra.Command) (*service.TicketService, func(), error) {
	store, err := openStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets,
		HistoryRepo: store.History,
		IDGenerator: store.IDs,
		Logger:      logger,
	}), store.Close, nil
}

func init() {
	ticketListCmd.Flags().StringSliceVar(&ticketStatuses, "status", nil, "filter by status (repeatable)")
	ticketListCmd.Flags().IntVar(&ticketLimit, "limit", 20, "maximum tickets to print")
	ticketCmd.AddCommand(ticketShowCmd, ticketListCmd)
}

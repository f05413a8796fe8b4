package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
)

var getMultiline = GetMultiline

func (a *App) NewTicket(ctx context.Context) error {
	subject, err := getSimpleText(a.reader, "Subject", a.out)
	if err != nil {
		return err
	}
	body, err := getMultiline(a.reader, "Describe the problem", a.out)
	if err != nil {
		return err
	}
	t, err := a.support.Create(ctx, subject, body)
	if err != nil {
		return a.fail(ctx, "Ticket", err)
	}
	fmt.Fprintf(a.out, "Ticket %s created\n", t.ID)
	return nil
}

func (a *App) Tickets(ctx context.Context) error {
	var (
		items []client.SupportMessage
		err   error
	)
	if a.isAdmin() {
		items, err = a.support.All(ctx)
	} else {
		items, err = a.support.Mine(ctx)
	}
	if err != nil {
		return a.fail(ctx, "Tickets", err)
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No tickets")
		return nil
	}
	for _, t := range items {
		fmt.Fprintf(a.out, "%s  %-9s  %s  %s\n", t.ID, t.Status, formatTime(&t.CreatedAt), t.Subject)
		fmt.Fprintf(a.out, "    %s\n", t.Message)
		if t.AdminResponse != "" {
			fmt.Fprintf(a.out, "    > %s (%s)\n", t.AdminResponse, formatTime(t.ResponseAt))
		}
	}
	return nil
}

func (a *App) Respond(ctx context.Context, id string) error {
	body, err := getMultiline(a.reader, "Response", a.out)
	if err != nil {
		return err
	}
	t, err := a.support.Respond(ctx, id, body)
	if err != nil {
		return a.fail(ctx, "Respond", err)
	}
	fmt.Fprintf(a.out, "Ticket %s is now %s\n", t.ID, t.Status)
	return nil
}

package cli

import (
	"context"
	"fmt"
)

func (a *App) Say(ctx context.Context, text string) error {
	m, err := a.chat.Send(ctx, text)
	if err != nil {
		return a.fail(ctx, "Chat", err)
	}
	if m.Synced {
		fmt.Fprintln(a.out, "Sent")
	} else {
		fmt.Fprintln(a.out, "Saved, will be delivered when connected")
	}
	return nil
}

func (a *App) History(ctx context.Context, userID string) error {
	items, err := a.chat.History(ctx, userID)
	if err != nil {
		return a.fail(ctx, "Chat", err)
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No messages")
		return nil
	}
	admin := a.isAdmin()
	for i := range items {
		m := &items[i]
		mark := syncMark(m.Synced)
		if m.RejectReason != "" {
			mark = "!"
		}
		fmt.Fprintf(a.out, "%s %s  %-8s  %s\n", mark, formatMillis(m.Timestamp), speaker(m, admin), m.Message)
		if m.RejectReason != "" {
			fmt.Fprintf(a.out, "    not delivered: %s\n", m.RejectReason)
		}
	}
	return nil
}

func (a *App) Refresh(ctx context.Context, sessionID string) error {
	if err := a.chat.Refresh(ctx, sessionID); err != nil {
		return a.fail(ctx, "Refresh", err)
	}
	fmt.Fprintln(a.out, "Chat refreshed")
	return nil
}

func (a *App) Typing(ctx context.Context, userID string) error {
	if err := a.chat.Typing(ctx, userID); err != nil {
		return a.fail(ctx, "Typing", err)
	}
	return nil
}

func (a *App) Sessions(ctx context.Context, status string) error {
	items, err := a.chat.Sessions(ctx, status)
	if err != nil {
		return a.fail(ctx, "Sessions", err)
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No sessions")
		return nil
	}
	for _, s := range items {
		fmt.Fprintf(a.out, "%s  %-6s  %s <%s>  user %s  unread %d  last %s  %s\n",
			s.ID, s.Status, s.UserName, s.UserEmail, s.UserID, s.UnreadCount, formatTime(s.LastMessageAt), s.LastMessage)
	}
	return nil
}

func (a *App) Reply(ctx context.Context, userID, sessionID, text string) error {
	m, err := a.chat.Reply(ctx, userID, sessionID, text)
	if err != nil {
		return a.fail(ctx, "Reply", err)
	}
	if m.Synced {
		fmt.Fprintln(a.out, "Sent")
	} else {
		fmt.Fprintln(a.out, "Saved, will be delivered when connected")
	}
	return nil
}

func (a *App) CloseSession(ctx context.Context, sessionID string) error {
	if err := a.chat.CloseSession(ctx, sessionID); err != nil {
		return a.fail(ctx, "Close", err)
	}
	fmt.Fprintf(a.out, "Session %s will be closed\n", sessionID)
	return nil
}

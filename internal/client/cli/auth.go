package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fintrack/internal/client/store"
)

// getSimpleText and getPassword are test seams over the input helpers.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

func (a *App) fail(ctx context.Context, what string, err error) error {
	a.logger.Debug(ctx, what+" failed", "error", err)
	fmt.Fprintf(a.out, "%s: %s\n", what, describeError(err))
	return err
}

func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Name", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Password")
	if err != nil {
		return err
	}

	s, err := a.auth.Register(ctx, email, password, name)
	if err != nil {
		return a.fail(ctx, "Registration", err)
	}
	a.signedIn(ctx, s)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Password")
	if err != nil {
		return err
	}

	s, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return a.fail(ctx, "Login", err)
	}
	a.signedIn(ctx, s)
	return nil
}

func (a *App) signedIn(ctx context.Context, s *store.Session) {
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", s.Email, s.Role)
	a.triggerSync(ctx)
}

// Logout forgets the credential. Local expenses and queued actions stay on
// the device and are pushed after the same user signs in again.
func (a *App) Logout(ctx context.Context) error {
	_ = a.channel.Close()
	if err := a.auth.Logout(ctx); err != nil {
		return a.fail(ctx, "Logout", err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	if s := a.auth.Current(); s != nil {
		fmt.Fprintf(a.out, "User:     %s (%s)\n", s.Email, s.Role)
	} else {
		fmt.Fprintln(a.out, "User:     not signed in")
	}
	fmt.Fprintf(a.out, "Mode:     %s\n", a.mode())
	fmt.Fprintf(a.out, "Chat:     %s", a.channel.State())
	if id := a.channel.SessionID(); id != "" {
		fmt.Fprintf(a.out, " (session %s)", id)
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	if !a.online.IsOnline() {
		fmt.Fprintln(a.out, "Offline: changes stay queued until the server is reachable")
		return nil
	}
	a.openChannel(ctx)
	ran, err := a.syncer.StartSync(ctx)
	if err != nil {
		return a.fail(ctx, "Sync", err)
	}
	if !ran {
		fmt.Fprintln(a.out, "Sync skipped: another sync is in progress")
		return nil
	}
	fmt.Fprintln(a.out, "Sync complete")
	return nil
}

func (a *App) DeadLetters(ctx context.Context) error {
	items, err := a.letters.DeadLetters(ctx, a.userID())
	if err != nil {
		return a.fail(ctx, "Dead letters", err)
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No rejected actions")
		return nil
	}
	for _, d := range items {
		fmt.Fprintf(a.out, "%d  %s  %s  %s\n", d.ID, formatMillis(d.CreatedAt), d.Action.Kind, d.Reason)
	}
	return nil
}

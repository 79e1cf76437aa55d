package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/tokens"
	"github.com/dmitrijs2005/tokenrefresh/internal/common"
)

// getSecret is an indirection used to facilitate testing.
var getSecret = GetSecret

// Status prints the stored session and the refresh coordinator counters.
func (a *App) Status(ctx context.Context) error {
	st, err := a.api.Status(ctx)
	if err != nil {
		return err
	}

	user := st.User
	if user == "" {
		user = "-"
	}
	access := presence(st.HasAccessToken)
	if !st.AccessExpiresAt.IsZero() {
		access += fmt.Sprintf(" (expires %s)", st.AccessExpiresAt.Local().Format(time.RFC3339))
	}
	state := "idle"
	if st.Refreshing {
		state = "refreshing"
	}

	fmt.Fprintf(a.out, "user:          %s\n", user)
	fmt.Fprintf(a.out, "access token:  %s\n", access)
	fmt.Fprintf(a.out, "refresh token: %s\n", presence(st.HasRefreshToken))
	fmt.Fprintf(a.out, "refresh:       %s (started %d, joined %d, failed %d)\n",
		state, st.Stats.Refreshes, st.Stats.Joined, st.Stats.Failures)
	if m := a.Mode(); m != "" {
		fmt.Fprintf(a.out, "mode:          %s\n", m)
	}
	return nil
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "absent"
}

// Get fetches path from the API and prints the answer.
func (a *App) Get(ctx context.Context, path string) error {
	resp, err := a.api.Get(ctx, path)
	if resp != nil {
		fmt.Fprintf(a.out, "%d\n%s\n", resp.StatusCode, strings.TrimRight(string(resp.Body), "\n"))
	}
	return err
}

// Ping probes the server and updates Mode right away.
func (a *App) Ping(ctx context.Context) error {
	if err := a.api.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return err
	}
	a.setMode(ModeOnline)
	fmt.Fprintln(a.out, "pong")
	return nil
}

// Import stores a token pair obtained elsewhere, for example from a browser
// login. Tokens are read without echo.
func (a *App) Import(ctx context.Context, user string) error {
	access, err := getSecret(a.out, "Access token: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(access)

	refresh, err := getSecret(a.out, "Refresh token: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(refresh)

	pair := tokens.Pair{
		Access:  strings.TrimSpace(string(access)),
		Refresh: strings.TrimSpace(string(refresh)),
	}
	if err := a.api.ImportTokens(ctx, pair, user); err != nil {
		return err
	}

	a.setSession(user, true)
	fmt.Fprintln(a.out, "Tokens stored")
	return nil
}

// Logout forgets the stored session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return err
	}
	a.setSession("", false)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

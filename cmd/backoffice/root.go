package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mundobebe/backoffice/app"
	"github.com/mundobebe/backoffice/auth"
	"github.com/mundobebe/backoffice/config"
	"github.com/mundobebe/backoffice/core"
)

var version = "dev"

var (
	configPath string
	token      string
)

// operator is the session used when no --token is given: a local shell
// user with full rights.
var operator = &core.Session{UserID: "cli", Role: core.RoleSuperadmin}

var rootCmd = &cobra.Command{
	Use:           "backoffice",
	Short:         "Backoffice administration CLI",
	Long:          "Manage catalog categories, subcategories and backoffice users.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "backoffice", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./backoffice.yaml)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "session JWT; without it commands run as the local operator")
	rootCmd.AddCommand(versionCmd, migrateCmd, categoriesCmd, usersCmd)
}

// withApp loads the configuration, builds the app and runs fn with a
// context carrying the caller's credentials.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return report(cmd.ErrOrStderr(), err)
	}
	var opts []app.Option
	if token == "" {
		opts = append(opts, app.WithSessions(auth.StaticProvider{Session: operator}))
	}
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, opts...)
	if err != nil {
		return report(cmd.ErrOrStderr(), err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			a.Logger.Warn("close: %v", cerr)
		}
	}()
	if token != "" {
		ctx = auth.WithToken(ctx, token)
	}
	return report(cmd.ErrOrStderr(), fn(core.WithClientIP(ctx, "cli"), a))
}

// reportedError marks an error already printed by report.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// report prints domain errors the way a user should read them.
func report(w io.Writer, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := core.AsError(err); ok {
		fmt.Fprintf(w, "error [%s]: %s\n", e.Kind, e.Message)
		for _, f := range e.Fields {
			fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Message)
		}
	} else if redirect, ok := core.AsRedirect(err); ok {
		fmt.Fprintf(w, "error: sign in required (%s)\n", redirect.Target)
	} else {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	return reportedError{err}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// splitIDs accepts ids as separate args or comma lists.
func splitIDs(args []string) []string {
	var ids []string
	for _, a := range args {
		for _, id := range strings.Split(a, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	fxmodules "deadlock-challenge/internal/fx"
	"deadlock-challenge/internal/server"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var errFlowFailed = errors.New("flow did not succeed")

type options struct {
	serverURL string
	verbose   bool
	asJSON    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFlowFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "challengectl",
		Short:         "Create, accept and settle staked match challenges",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.serverURL, "server", "", "talk to a running server at this base URL instead of in-process")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print the full response as JSON")

	root.AddCommand(
		connectCmd(opts),
		listCmd(opts),
		createCmd(opts),
		acceptCmd(opts),
		verifyCmd(opts),
		activityCmd(opts),
	)
	return root
}

func connectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Authorize the configured wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAPI(cmd, opts, false, func(ctx context.Context, api server.API) error {
				res, err := api.Connect(ctx, &server.ConnectRequest{})
				if err != nil {
					return err
				}
				return report(cmd.OutOrStdout(), opts, res, res.Status)
			})
		},
	}
}

func listCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open challenges, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAPI(cmd, opts, false, func(ctx context.Context, api server.API) error {
				res, err := api.ListOpenChallenges(ctx, &server.ListOpenChallengesRequest{})
				if err != nil {
					return err
				}
				if !opts.asJSON {
					printChallenges(cmd.OutOrStdout(), res.Challenges)
				}
				return report(cmd.OutOrStdout(), opts, res, res.Status)
			})
		},
	}
}

func createCmd(opts *options) *cobra.Command {
	var matchID string
	cmd := &cobra.Command{
		Use:   "create PLAYER_ID x6",
		Short: "Create a challenge staking the fixed amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAPI(cmd, opts, true, func(ctx context.Context, api server.API) error {
				res, err := api.CreateChallenge(ctx, &server.CreateChallengeRequest{PlayerIDs: args, MatchID: matchID})
				if err != nil {
					return err
				}
				return report(cmd.OutOrStdout(), opts, res, res.Status)
			})
		},
	}
	cmd.Flags().StringVar(&matchID, "match-id", "", "pin the challenge to this match id (empty or 0 for any)")
	return cmd
}

func acceptCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "accept CHALLENGE_ID PLAYER_ID x6",
		Short: "Accept an open challenge staking the fixed amount",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAPI(cmd, opts, true, func(ctx context.Context, api server.API) error {
				res, err := api.AcceptChallenge(ctx, &server.AcceptChallengeRequest{ChallengeID: args[0], PlayerIDs: args[1:]})
				if err != nil {
					return err
				}
				err = report(cmd.OutOrStdout(), opts, res, res.Status)
				if res.Refreshed != nil && !opts.asJSON {
					printChallenges(cmd.OutOrStdout(), res.Refreshed.Challenges)
				}
				return err
			})
		},
	}
}

func verifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify CHALLENGE_ID MATCH_ID",
		Short: "Check a played match against an accepted challenge and pay out",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAPI(cmd, opts, true, func(ctx context.Context, api server.API) error {
				res, err := api.VerifyMatch(ctx, &server.VerifyMatchRequest{ChallengeID: args[0], MatchID: args[1]})
				if err != nil {
					return err
				}
				return report(cmd.OutOrStdout(), opts, res, res.Status)
			})
		},
	}
}

func activityCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the local activity journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAPI(cmd, opts, false, func(ctx context.Context, api server.API) error {
				res, err := api.ListActivity(ctx, &server.ListActivityRequest{Limit: limit})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.asJSON {
					return printJSON(out, res)
				}
				for _, e := range res.Entries {
					fmt.Fprintf(out, "%s  %-7s %-9s #%d  %s\n", e.CreatedAt, e.Kind, e.Outcome, e.ChallengeID, e.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "entries to show (0 for the default)")
	return cmd
}

// withAPI runs fn against a remote server when --server is set, otherwise
// against an in-process app. In-process flows that sign connect first, since
// a fresh process starts with no authorized account.
func withAPI(cmd *cobra.Command, opts *options, signs bool, fn func(context.Context, server.API) error) error {
	ctx := cmd.Context()

	if opts.serverURL != "" {
		return fn(ctx, server.NewClient(http.DefaultClient, strings.TrimRight(opts.serverURL, "/")))
	}

	var srv *server.ChallengeServer
	app := fx.New(
		fxmodules.Module,
		fx.NopLogger,
		fx.Decorate(func(l zerolog.Logger) zerolog.Logger {
			if opts.verbose {
				return l.Output(os.Stderr)
			}
			return zerolog.Nop()
		}),
		fx.Populate(&srv),
	)
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer app.Stop(context.Background())

	if signs {
		res, err := srv.Connect(ctx, &server.ConnectRequest{})
		if err != nil {
			return err
		}
		if res.Status.Kind != server.StatusSuccess {
			return report(cmd.OutOrStdout(), opts, res, res.Status)
		}
	}
	return fn(ctx, srv)
}

func report(out io.Writer, opts *options, res any, st server.Status) error {
	if opts.asJSON {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, st.String())
	}
	if st.Kind == server.StatusError || st.Kind == server.StatusCancelled {
		return errFlowFailed
	}
	return nil
}

func printChallenges(out io.Writer, cs []server.ChallengeView) {
	for _, c := range cs {
		team := make([]string, len(c.ChallengingTeam))
		for i, id := range c.ChallengingTeam {
			team[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(out, "#%d  %s  %s  by %s  team [%s]\n", c.ID, c.Stake, c.CreatedAt, c.Captain1, strings.Join(team, ", "))
	}
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	flighthandler "flighttracker/internal/flight/handler"
	"flighttracker/internal/flight/models"
	"flighttracker/internal/flight/schema"
	"flighttracker/internal/flight/service"
	jwttoken "flighttracker/internal/jwt_token"
	"flighttracker/internal/platform/config"
	"flighttracker/internal/platform/logger"
	"flighttracker/internal/storage/blob"
	"flighttracker/pkg/domain"
	listutil "flighttracker/pkg/platform/strings"
)

// operator is the identity the local tools act as.
func operator(userID string) domain.Identity {
	return domain.Identity{UserID: userID, Granted: domain.ScopeAll}
}

func newLocalService(ctx context.Context, cmd *cobra.Command, v *viper.Viper) (*service.Service, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, err := blob.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return service.New(store,
		service.WithLogger(logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, "text")),
		service.WithFetchConcurrency(cfg.Query.FetchConcurrency),
		service.WithDefaultLimit(cfg.Query.DefaultLimit),
	)
}

func newAppendCmd(v *viper.Viper) *cobra.Command {
	var (
		file string
		as   string
	)
	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append flights read as JSON lines from a file or stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := newLocalService(ctx, cmd, v)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return appendLines(ctx, svc, operator(as), schema.MustNew(), in, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON lines input (- for stdin)")
	cmd.Flags().StringVar(&as, "as", "operator", "User id recorded as owner when a flight has none")
	return cmd
}

func appendLines(ctx context.Context, svc *service.Service, caller domain.Identity, validator *schema.Validator, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if err := validator.Validate(raw); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		var f models.Flight
		if err := json.Unmarshal(raw, &f); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		res, err := svc.Append(ctx, caller, &f)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		fmt.Fprintf(out, "%s\t%s\n", res.ID, res.PartitionKey)
	}
	return scanner.Err()
}

func newQueryCmd(v *viper.Viper) *cobra.Command {
	var (
		status string
		from   string
		to     string
		limit  string
		id     string
		stats  bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print matching flights as JSON lines, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := newLocalService(ctx, cmd, v)
			if err != nil {
				return err
			}
			caller := operator("operator")
			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)

			if id != "" {
				f, err := svc.Get(ctx, caller, id)
				if err != nil {
					return err
				}
				return enc.Encode(f)
			}

			req, err := flighthandler.ParseQueryValues(url.Values{
				"status": {status},
				"from":   {from},
				"to":     {to},
				"limit":  {limit},
			})
			if err != nil {
				return err
			}

			if stats {
				st, err := svc.Stats(ctx, caller, req)
				if err != nil {
					return err
				}
				return enc.Encode(flighthandler.FromStats(st))
			}

			res, err := svc.Query(ctx, caller, req)
			if err != nil {
				return err
			}
			for i := range res.Flights {
				if err := enc.Encode(res.Flights[i]); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "matched=%d returned=%d skipped=%d partitions=%d\n",
				res.Matched, len(res.Flights), res.Skipped, res.Partitions)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&status, "status", "", "Only flights with this status")
	flags.StringVar(&from, "from", "", "Lower bound (RFC 3339 or YYYY-MM-DD)")
	flags.StringVar(&to, "to", "", "Upper bound (RFC 3339 or YYYY-MM-DD, whole day)")
	flags.StringVar(&limit, "limit", "", "Maximum records to print")
	flags.StringVar(&id, "id", "", "Print the latest record for one flight id")
	flags.BoolVar(&stats, "stats", false, "Print per-status counts instead of records")
	return cmd
}

func newTokenCmd(v *viper.Viper) *cobra.Command {
	var (
		subject jwttoken.Subject
		teams   string
		scope   string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token signed with the configured key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sc, err := domain.ParseScope(strings.ToLower(scope))
			if err != nil {
				return err
			}
			subject.Scope = sc
			subject.TeamIDs = listutil.SplitList(teams)
			if subject.UserID == "" {
				return fmt.Errorf("--user is required")
			}

			tok, err := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience).
				GenerateAccessToken(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&subject.UserID, "user", "", "Caller user id")
	flags.StringVar(&teams, "teams", "", "Comma-separated team ids")
	flags.StringVar(&subject.OrgID, "org", "", "Organization id")
	flags.StringVar(&scope, "scope", string(domain.ScopeOwn), "Granted scope (own, team, org, all)")
	flags.DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

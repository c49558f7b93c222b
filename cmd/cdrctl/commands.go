package main

import (
	"fmt"
	"strings"
	"time"

	"paricus-portal/internal/auth"
	"paricus-portal/internal/recordings"
	"paricus-portal/internal/reporting"

	"github.com/spf13/cobra"
)

type filterFlags struct {
	start, end    string
	agent         string
	callType      string
	phone         string
	interactionID string
	company       string
	hasAudio      string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "earliest start time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "latest start time (RFC3339 or YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&f.agent, "agent", "", "agent name prefix")
	cmd.Flags().StringVar(&f.callType, "call-type", "", "exact call type")
	cmd.Flags().StringVar(&f.phone, "phone", "", "customer phone prefix")
	cmd.Flags().StringVar(&f.interactionID, "id", "", "exact interaction id")
	cmd.Flags().StringVar(&f.company, "company", "", "tenant name")
	cmd.Flags().StringVar(&f.hasAudio, "has-audio", "", "true or false")
}

func (f *filterFlags) build() (recordings.FilterSet, error) {
	var out recordings.FilterSet
	var err error
	if out.StartDate, err = recordings.ParseDate(f.start, false); err != nil {
		return out, err
	}
	if out.EndDate, err = recordings.ParseDate(f.end, true); err != nil {
		return out, err
	}
	if out.HasAudio, err = recordings.ParseHasAudio(f.hasAudio); err != nil {
		return out, err
	}
	if f.company != "" && !recordings.IsTenant(f.company) {
		return out, fmt.Errorf("%w: unknown company %q (known: %s)",
			recordings.ErrInvalidFilter, f.company, strings.Join(recordings.Tenants(), ", "))
	}
	out.AgentName = f.agent
	out.CallType = f.callType
	out.CustomerPhone = f.phone
	out.InteractionID = f.interactionID
	out.Company = f.company
	return out.Normalize(), nil
}

func searchCmd(a *app) *cobra.Command {
	var (
		ff     filterFlags
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "List recordings matching filters, newest first",
		Long: `List recordings matching filters, newest first.

Examples:
  cdrctl search --company "Tempo Wireless" --has-audio true
  cdrctl search --agent Carla --start 2025-06-01 --end 2025-06-30 -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.build()
			if err != nil {
				return err
			}
			page, err := a.gateway.ListRecordings(cmd.Context(), f, limit, offset)
			if err != nil {
				return err
			}
			return render(a.out, a.format, page)
		},
	}
	ff.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func getCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get [interaction-id]",
		Short: "Show one recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.gateway.GetRecordingByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(a.out, a.format, r)
		},
	}
}

func agentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List distinct agent names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := a.gateway.ListDistinctAgentNames(cmd.Context())
			if err != nil {
				return err
			}
			return render(a.out, a.format, names)
		},
	}
}

func callTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "call-types",
		Short: "List distinct call types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := a.gateway.ListDistinctCallTypes(cmd.Context())
			if err != nil {
				return err
			}
			return render(a.out, a.format, types)
		},
	}
}

func tagsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List distinct tags with the tenant each resolves to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := a.gateway.ListDistinctTags(cmd.Context())
			if err != nil {
				return err
			}
			return render(a.out, a.format, tags)
		},
	}
}

func summaryCmd(a *app) *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Count recordings by audio availability and tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.build()
			if err != nil {
				return err
			}
			sum, err := reporting.NewService(a.gateway).RecordingsSummary(cmd.Context(), reporting.SummaryRequest{
				From:    f.StartDate,
				To:      f.EndDate,
				Company: f.Company,
				Agent:   f.AgentName,
			})
			if err != nil {
				return err
			}
			return render(a.out, a.format, sum)
		},
	}
	cmd.Flags().StringVar(&ff.start, "start", "", "earliest start time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&ff.end, "end", "", "latest start time (RFC3339 or YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&ff.agent, "agent", "", "agent name prefix")
	cmd.Flags().StringVar(&ff.company, "company", "", "tenant name")
	return cmd
}

// pingCmd exits non-zero only when a configured store fails; mock mode is not an error.
func pingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the CDR store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := a.gateway.TestConnectivity(cmd.Context())
			if err := render(a.out, a.format, res); err != nil {
				return err
			}
			if !res.OK && res.Mode == recordings.ModeLive {
				return fmt.Errorf("cdr store unreachable")
			}
			return nil
		},
	}
}

func tokenCmd(a *app) *cobra.Command {
	var id auth.Identity
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for calling the portal API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := auth.NewManager(a.cfg.Auth)
			if err != nil {
				return err
			}
			tok, err := m.IssueAccess(time.Now(), id)
			if err != nil {
				return err
			}
			return render(a.out, a.format, map[string]any{
				"access_token": tok,
				"expires_in":   int(a.cfg.Auth.AccessTokenTTL.Seconds()),
			})
		},
	}
	cmd.Flags().StringVar(&id.UserID, "user", "", "user id (required)")
	cmd.Flags().StringVar(&id.Role, "role", "", "role: super_admin, bpo_admin, client_admin, client_user (required)")
	cmd.Flags().StringVar(&id.Company, "company", "", "tenant for client roles")
	cmd.Flags().StringSliceVar(&id.Permissions, "perm", nil, "extra permissions")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ttiimmothy/expense-splitter/models"
	"github.com/ttiimmothy/expense-splitter/repository/memory"
	"github.com/ttiimmothy/expense-splitter/services"
)

type options struct {
	file    string
	as      string
	verbose bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "settle",
		Short:        "Shared expense balances from a ledger file",
		Long:         "Compute who owes whom in a group, and the fewest payments that settle everyone up.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogger(opts.verbose)
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "ledger.toml", "Ledger file to read")
	root.PersistentFlags().StringVar(&opts.as, "as", "", "Person key to act as (defaults to the first member)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine diagnostics to stderr")

	root.AddCommand(&cobra.Command{
		Use:   "balances",
		Short: "Net balance of everyone in the group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(opts)
			if err != nil {
				return err
			}
			resp, err := s.balances.GetGroupBalances(cmd.Context(), s.ledger.GroupID, s.requester)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, renderBalances(s.groupName, resp))
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "suggest",
		Short: "Fewest payments that settle the group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(opts)
			if err != nil {
				return err
			}
			suggestions, err := s.settlements.SuggestSettlements(cmd.Context(), s.ledger.GroupID, s.requester)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, renderSuggestions(s.groupName, s.ledger.Currency, suggestions))
			return nil
		},
	})

	return root
}

func setupLogger(verbose bool) error {
	if !verbose {
		zap.ReplaceGlobals(zap.NewNop())
		return nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return nil
}

type session struct {
	ledger      *memory.Ledger
	groupName   string
	requester   string
	balances    services.BalanceService
	settlements services.SettlementService
}

func open(opts *options) (*session, error) {
	l, err := memory.LoadFile(opts.file)
	if err != nil {
		return nil, err
	}

	requester := l.OwnerID()
	if opts.as != "" {
		id, ok := l.PersonID(opts.as)
		if !ok {
			return nil, fmt.Errorf("unknown person %q in %s", opts.as, opts.file)
		}
		requester = id
	}

	st := l.Store
	group, err := st.Groups().GetByID(context.Background(), l.GroupID)
	if err != nil {
		return nil, err
	}

	balances := services.NewBalanceService(st.Groups(), st.Users(), st.Expenses(), st.Settlements(), st.Currencies(), st)
	return &session{
		ledger:      l,
		groupName:   group.Name,
		requester:   requester,
		balances:    balances,
		settlements: services.NewSettlementService(balances, st.Groups(), st.Users(), st.Settlements(), st.Currencies(), nil),
	}, nil
}

func displayName(b models.Balance) string {
	if b.UserName != "" {
		return b.UserName
	}
	return b.UserID
}

package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/ccdwallet/internal/chain"
	"github.com/mrz1836/ccdwallet/internal/output"
	"github.com/mrz1836/ccdwallet/internal/proxy"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	historyAccount int
	historyLimit   int
	historyFilter  string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent transactions",
	Long: `Show an account's most recent transactions, newest first.

Filters: all, sent, received, contract.

Example:
  ccdwallet history
  ccdwallet history --account 2 --filter received --limit 50`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyAccount, "account", -1, "account index (default: first account)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "number of transactions (default: configured history limit)")
	historyCmd.Flags().StringVar(&historyFilter, "filter", "all", "all, sent, received or contract")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	filter, err := proxy.ParseFilter(historyFilter)
	if err != nil {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"filter": err.Error()})
	}
	limit := historyLimit
	if limit <= 0 {
		limit = cfg.Discovery.HistoryLimit
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	account, err := s.selectAccount(historyAccount)
	if err != nil {
		return err
	}
	client, err := newProxyClient(s.machine.Network())
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	txs, err := s.machine.FetchTransactions(ctx, client, limit)
	if err != nil {
		return err
	}

	summaries := make([]proxy.Summary, len(txs))
	for i := range txs {
		summaries[i] = txs[i].Summarize()
	}
	summaries = proxy.FilterTransactions(summaries, filter, account.Address)

	return formatter.Result(summaries, func(w io.Writer) error {
		if len(summaries) == 0 {
			outln(w, "No transactions.")
			return nil
		}
		tbl := output.NewTable("Time", "Type", "Amount (CCD)", "Counterparty", "Status").AlignRight(2)
		for _, sm := range summaries {
			tbl.AddRow(
				sm.BlockTime.Format("2006-01-02 15:04"),
				sm.Kind,
				signedAmount(sm, account.Address),
				counterparty(sm, account.Address),
				status(sm),
			)
		}
		return tbl.Render(w)
	})
}

func signedAmount(sm proxy.Summary, owner string) string {
	if sm.Amount == "" {
		return ""
	}
	amt := chain.FormatTokenAmount(sm.Amount, chain.CCDDecimals)
	if sm.Sender == owner && sm.Destination != owner {
		return "-" + amt
	}
	return amt
}

func counterparty(sm proxy.Summary, owner string) string {
	if sm.Sender == owner {
		return wallet.ShortAddress(sm.Destination)
	}
	return wallet.ShortAddress(sm.Sender)
}

func status(sm proxy.Summary) string {
	if sm.Success {
		return "ok"
	}
	return "rejected"
}

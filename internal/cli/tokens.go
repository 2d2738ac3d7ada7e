package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/ccdwallet/internal/chain"
	"github.com/mrz1836/ccdwallet/internal/output"
	"github.com/mrz1836/ccdwallet/internal/token"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var tokensAccount int

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Inspect token holdings",
	Long:  `Inspect the CIS-2 and protocol-level tokens an account holds.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tokensSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Show the wallet proxy's view of an account's tokens",
	Long: `Show the tokens the wallet proxy reports for an account together with
its CCD balance. Balances are the proxy's snapshot and are not confirmed
against the chain.

Example:
  ccdwallet tokens snapshot
  ccdwallet tokens snapshot --account 1 -o json`,
	Args: cobra.NoArgs,
	RunE: runTokensSnapshot,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensSnapshotCmd)
	tokensSnapshotCmd.Flags().IntVar(&tokensAccount, "account", -1, "account index (default: first account)")
}

// snapshotResult is the JSON shape of tokens snapshot.
type snapshotResult struct {
	Address   string          `json:"address"`
	Balance   string          `json:"balance"`
	Finalized string          `json:"finalizedBalance"`
	Tokens    []token.Holding `json:"tokens"`
}

func runTokensSnapshot(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	account, err := s.selectAccount(tokensAccount)
	if err != nil {
		return err
	}
	client, err := newProxyClient(s.machine.Network())
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	bal, err := client.AccountBalance(ctx, account.Address)
	if err != nil {
		return err
	}

	holdings := token.SnapshotHoldings(bal)

	res := snapshotResult{
		Address:   account.Address,
		Balance:   chain.FormatTokenAmount(bal.CurrentBalance, chain.CCDDecimals),
		Finalized: chain.FormatTokenAmount(bal.FinalizedBalance, chain.CCDDecimals),
		Tokens:    holdings,
	}
	return formatter.Result(res, func(w io.Writer) error {
		out(w, "CCD: %s (finalized %s)\n\n", res.Balance, res.Finalized)
		if len(holdings) == 0 {
			outln(w, "No tokens.")
			return nil
		}
		tbl := output.NewTable("Token", "Contract", "Token ID", "Balance").AlignRight(3)
		for _, h := range holdings {
			tbl.AddRow(h.Symbol(), h.Contract().String(), h.TokenID, h.DisplayAmount())
		}
		return tbl.Render(w)
	})
}

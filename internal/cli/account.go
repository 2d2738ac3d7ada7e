package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/ccdwallet/internal/chain"
	"github.com/mrz1836/ccdwallet/internal/output"
	"github.com/mrz1836/ccdwallet/internal/proxy"
	"github.com/mrz1836/ccdwallet/internal/state"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	listBalances   bool
	addAddress     string
	addIndex       int
	keyAccount     int
	keyShowSigning bool
	receiveAccount int
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage wallet accounts",
	Long:  `List, add and inspect the accounts derived from the wallet seed.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Long: `List the wallet's accounts. With --balances each account's CCD balance
is read from the wallet proxy; one account failing does not hide the others.

Example:
  ccdwallet account list
  ccdwallet account list --balances -o json`,
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE:    runAccountList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an account created through the identity app",
	Long: `Register an on-chain account with the wallet. Its keys are derived at
the next account index, or at --index, and the public key is printed so it
can be checked against the credential on chain.

Example:
  ccdwallet account add --address 3kBx2h5Y2veb4hZgAJWPrr8RyQESKm5TjzF3ti1QQ4VSYLwK1G`,
	Args: cobra.NoArgs,
	RunE: runAccountAdd,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountKeyCmd = &cobra.Command{
	Use:   "key",
	Short: "Show an account's keys",
	Long: `Show an account's public key. With --signing-key the wallet is unlocked
and the ed25519 signing key is printed after confirmation.`,
	Args: cobra.NoArgs,
	RunE: runAccountKey,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountReceiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Show an account address for receiving funds",
	Long: `Print an account's address, with a QR code when the output is a
terminal.`,
	Args: cobra.NoArgs,
	RunE: runAccountReceive,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountListCmd, accountAddCmd, accountKeyCmd, accountReceiveCmd)

	accountListCmd.Flags().BoolVar(&listBalances, "balances", false, "fetch CCD balances")

	accountAddCmd.Flags().StringVar(&addAddress, "address", "", "account address (required)")
	accountAddCmd.Flags().IntVar(&addIndex, "index", -1, "derivation index, not below the next free index (default: next free index)")
	_ = accountAddCmd.MarkFlagRequired("address")

	accountKeyCmd.Flags().IntVar(&keyAccount, "account", -1, "account index (default: first account)")
	accountKeyCmd.Flags().BoolVar(&keyShowSigning, "signing-key", false, "also print the signing key")

	accountReceiveCmd.Flags().IntVar(&receiveAccount, "account", -1, "account index (default: first account)")
}

// accountRow is the JSON shape of one listed account.
type accountRow struct {
	Index     uint32         `json:"accountIndex"`
	Address   string         `json:"address"`
	PublicKey string         `json:"publicKey"`
	Network   wallet.Network `json:"network"`
	Balance   string         `json:"balance,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func runAccountList(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if s.machine.Status() == state.Uninitialized {
		return errNoWallet()
	}

	accounts := s.machine.Accounts()
	rows := make([]accountRow, len(accounts))
	for i, a := range accounts {
		rows[i] = accountRow{Index: a.AccountIndex, Address: a.Address, PublicKey: a.PublicKey, Network: a.Network}
	}

	if listBalances && len(accounts) > 0 {
		client, err := newProxyClient(s.machine.Network())
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		results := s.machine.RefreshBalances(ctx, proxy.CCDBalanceReader{Client: client}, cfg.QueryTimeout())
		for i, r := range results {
			if r.Err != nil {
				rows[i].Error = r.Err.Error()
				continue
			}
			rows[i].Balance = chain.FormatCCD(r.Balance)
		}
	}

	return formatter.Result(rows, func(w io.Writer) error {
		if len(rows) == 0 {
			outln(w, "No accounts yet. Add one with 'ccdwallet account add'.")
			return nil
		}
		headers := []string{"Index", "Address", "Public key"}
		if listBalances {
			headers = append(headers, "Balance (CCD)")
		}
		tbl := output.NewTable(headers...).AlignRight(3)
		for _, r := range rows {
			cells := []string{fmt.Sprint(r.Index), r.Address, wallet.ShortAddress(r.PublicKey)}
			if listBalances {
				bal := r.Balance
				if r.Error != "" {
					bal = "unavailable"
				}
				cells = append(cells, bal)
			}
			tbl.AddRow(cells...)
		}
		return tbl.Render(w)
	})
}

func runAccountAdd(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if s.machine.Status() == state.Uninitialized {
		return errNoWallet()
	}
	if err := s.unlock(); err != nil {
		return err
	}

	index, err := reserveIndex(s.machine, addIndex)
	if err != nil {
		return err
	}
	// The reserved index stays burned even if the add fails below.
	if err := s.save(); err != nil {
		return err
	}
	keys, err := s.machine.DeriveKeys(index)
	if err != nil {
		return err
	}

	account := wallet.Account{
		Address:      addAddress,
		PublicKey:    keys.PublicKey,
		SigningKey:   keys.SigningKey,
		AccountIndex: index,
		Network:      s.machine.Network(),
	}
	if err := s.machine.AddAccount(account); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return err
	}

	row := accountRow{Index: index, Address: account.Address, PublicKey: account.PublicKey, Network: account.Network}
	return formatter.Result(row, func(w io.Writer) error {
		output.Successf(w, "Account %d added", index)
		return formatter.KeyValues(
			[2]string{"Address", row.Address},
			[2]string{"Public key", row.PublicKey},
		)
	})
}

// reserveIndex returns want, advancing the counter past it, or the next
// free index when want is negative. Indices below the counter were already
// handed out and are never reused.
func reserveIndex(m *state.Machine, want int) (uint32, error) {
	if want < 0 {
		counter, err := m.IncrementAccountIndex()
		if err != nil {
			return 0, err
		}
		return counter - 1, nil
	}
	if uint64(want) > uint64(^uint32(0)>>1) {
		return 0, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"index": fmt.Sprint(want)})
	}
	idx := uint32(want) //nolint:gosec // range checked above
	if next := m.NextAccountIndex(); idx < next {
		return 0, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{
			"index":  fmt.Sprint(want),
			"reason": fmt.Sprintf("index already used, next free index is %d", next),
		})
	}
	for m.NextAccountIndex() <= idx {
		if _, err := m.IncrementAccountIndex(); err != nil {
			return 0, err
		}
	}
	return idx, nil
}

// keyResult is the JSON shape of account key.
type keyResult struct {
	Index      uint32 `json:"accountIndex"`
	Address    string `json:"address"`
	PublicKey  string `json:"publicKey"`
	SigningKey string `json:"signingKey,omitempty"`
}

func runAccountKey(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := s.selectAccount(keyAccount)
	if err != nil {
		return err
	}
	res := keyResult{Index: a.AccountIndex, Address: a.Address, PublicKey: a.PublicKey}

	if keyShowSigning {
		if !promptConfirmFn("The signing key controls this account's funds. Print it?") {
			return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"signing-key": "cancelled"})
		}
		if err := s.unlock(); err != nil {
			return err
		}
		a, err = s.selectAccount(keyAccount)
		if err != nil {
			return err
		}
		res.SigningKey = a.SigningKey
	}

	if formatter.IsJSON() {
		return formatter.Print(res)
	}
	pairs := [][2]string{
		{"Account", fmt.Sprint(res.Index)},
		{"Address", res.Address},
		{"Public key", res.PublicKey},
	}
	if res.SigningKey != "" {
		pairs = append(pairs, [2]string{"Signing key", res.SigningKey})
	}
	return formatter.KeyValues(pairs...)
}

func runAccountReceive(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := s.selectAccount(receiveAccount)
	if err != nil {
		return err
	}

	res := map[string]any{"accountIndex": a.AccountIndex, "address": a.Address, "network": a.Network}
	return formatter.Result(res, func(w io.Writer) error {
		outln(w, a.Address)
		if output.RenderAddressQR(w, a.Address) {
			outln(w)
		}
		return nil
	})
}

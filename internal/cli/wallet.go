package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/ccdwallet/internal/output"
	"github.com/mrz1836/ccdwallet/internal/state"
	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	createWords   int
	createRestore bool
	createNetwork string
	resetForce    bool
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the wallet",
	Long:  `Create, inspect, back up and reset the local wallet.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a wallet from a new or existing seed phrase",
	Long: `Create the wallet and encrypt its seed phrase under a password.

A new phrase is displayed once. Write it down and store it offline.
With --restore you are asked for an existing phrase instead.

Example:
  ccdwallet wallet create
  ccdwallet wallet create --words 12 --network Mainnet
  ccdwallet wallet create --restore`,
	Args: cobra.NoArgs,
	RunE: runWalletCreate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show wallet status",
	Long: `Show whether a wallet exists, its network and its account count.
No password is needed.`,
	Args: cobra.NoArgs,
	RunE: runWalletInfo,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the wallet from this machine",
	Long: `Delete the stored wallet. Without a backup or the seed phrase the
wallet cannot be recovered.`,
	Args: cobra.NoArgs,
	RunE: runWalletReset,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletCreateCmd, walletInfoCmd, walletResetCmd)

	walletCreateCmd.Flags().IntVar(&createWords, "words", 24, "seed phrase length: 12 or 24")
	walletCreateCmd.Flags().BoolVar(&createRestore, "restore", false, "enter an existing seed phrase")
	walletCreateCmd.Flags().StringVar(&createNetwork, "network", "", "Testnet or Mainnet (default: configured network)")

	walletResetCmd.Flags().BoolVar(&resetForce, "force", false, "skip the confirmation prompt")
}

// createResult is the JSON shape of wallet create.
type createResult struct {
	Network  wallet.Network `json:"network"`
	Restored bool           `json:"restored"`
	Mnemonic string         `json:"mnemonic,omitempty"`
}

func runWalletCreate(_ *cobra.Command, _ []string) error {
	network := cfg.ActiveNetwork()
	if createNetwork != "" {
		n, err := wallet.ParseNetwork(createNetwork)
		if err != nil {
			return err
		}
		network = n
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if s.machine.Status() != state.Uninitialized {
		return walleterr.WithSuggestion(walleterr.ErrWalletExists,
			"back it up with 'ccdwallet wallet backup', then run 'ccdwallet wallet reset'")
	}

	var phrase string
	if createRestore {
		phrase, err = promptMnemonicFn()
	} else {
		phrase, err = wallet.GenerateMnemonic(createWords)
	}
	if err != nil {
		return err
	}

	password, err := promptNewPasswordFn("Enter new wallet password: ")
	if err != nil {
		return err
	}
	defer zeroBytes(password)

	if err := s.machine.Create(phrase, string(password), network); err != nil {
		return err
	}
	logger.Debug("cli: wallet created on %s", network)

	result := createResult{Network: network, Restored: createRestore}
	if !createRestore {
		result.Mnemonic = phrase
	}
	return formatter.Result(result, func(w io.Writer) error {
		output.Successf(w, "Wallet created on %s", network)
		if result.Mnemonic != "" {
			displayMnemonic(w, result.Mnemonic)
		}
		outln(w, "Add an account with 'ccdwallet account add'.")
		return nil
	})
}

// displayMnemonic prints the phrase as a numbered grid.
func displayMnemonic(w io.Writer, phrase string) {
	words := strings.Fields(phrase)
	outln(w)
	outln(w, "Seed phrase (shown once, write it down):")
	outln(w)
	for i, word := range words {
		out(w, "  %2d. %-12s", i+1, word)
		if (i+1)%4 == 0 {
			outln(w)
		}
	}
	if len(words)%4 != 0 {
		outln(w)
	}
	outln(w)
}

// infoResult is the JSON shape of wallet info.
type infoResult struct {
	Status           string         `json:"status"`
	Network          wallet.Network `json:"network,omitempty"`
	Accounts         int            `json:"accounts"`
	NextAccountIndex uint32         `json:"nextAccountIndex"`
	Storage          string         `json:"storage"`
	Home             string         `json:"home"`
}

func runWalletInfo(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	res := infoResult{
		Status:           s.machine.Status().String(),
		Accounts:         len(s.machine.Accounts()),
		NextAccountIndex: s.machine.NextAccountIndex(),
		Storage:          cfg.Storage.Backend,
		Home:             cfg.GetHome(),
	}
	if s.machine.Status() != state.Uninitialized {
		res.Network = s.machine.Network()
	}

	if formatter.IsJSON() {
		return formatter.Print(res)
	}
	if res.Status == state.Uninitialized.String() {
		return formatter.Printf("No wallet found in %s. Create one with 'ccdwallet wallet create'.\n", res.Home)
	}
	return formatter.KeyValues(
		[2]string{"Status", res.Status},
		[2]string{"Network", res.Network.String()},
		[2]string{"Accounts", fmt.Sprint(res.Accounts)},
		[2]string{"Next index", fmt.Sprint(res.NextAccountIndex)},
		[2]string{"Storage", res.Storage},
		[2]string{"Home", res.Home},
	)
}

func runWalletReset(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if s.machine.Status() == state.Uninitialized {
		return errNoWallet()
	}
	if !resetForce && !promptConfirmFn("Delete the wallet? It cannot be recovered without the seed phrase or a backup.") {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"reset": "cancelled"})
	}
	if err := s.machine.Reset(); err != nil {
		return err
	}
	return output.FormatSuccess(formatter.Writer(), "Wallet deleted", formatter.Format())
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/ccdwallet/internal/backup"
	"github.com/mrz1836/ccdwallet/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	backupList    bool
	restoreInput  string
	restoreForce  bool
	restoreVerify bool
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write an encrypted backup of the wallet",
	Long: `Write the stored wallet to ~/.ccdwallet/backups/ encrypted with a
backup password. The file carries a BLAKE3 checksum so corruption is
detected before decryption.

Example:
  ccdwallet wallet backup
  ccdwallet wallet backup --list`,
	Args: cobra.NoArgs,
	RunE: runWalletBackup,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the wallet from a backup file",
	Long: `Restore the stored wallet from a backup file. An existing wallet is
only replaced with --force. With --verify-only the backup is decrypted and
checked but nothing is written.

Example:
  ccdwallet wallet restore --input ~/.ccdwallet/backups/ccdwallet-Testnet-2026-01-15-120000.ccdbackup
  ccdwallet wallet restore --input backup.ccdbackup --verify-only`,
	Args: cobra.NoArgs,
	RunE: runWalletRestore,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	walletCmd.AddCommand(walletBackupCmd, walletRestoreCmd)

	walletBackupCmd.Flags().BoolVar(&backupList, "list", false, "list existing backups instead")

	walletRestoreCmd.Flags().StringVar(&restoreInput, "input", "", "path to backup file (required)")
	walletRestoreCmd.Flags().BoolVar(&restoreForce, "force", false, "replace an existing wallet")
	walletRestoreCmd.Flags().BoolVar(&restoreVerify, "verify-only", false, "check the backup without restoring")
	_ = walletRestoreCmd.MarkFlagRequired("input")
}

// backupResult is the JSON shape of wallet backup and restore.
type backupResult struct {
	Path     string           `json:"path"`
	Manifest *backup.Manifest `json:"manifest"`
	Restored bool             `json:"restored"`
}

func runWalletBackup(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	svc := newBackupService(s.store)

	if backupList {
		names, err := svc.List()
		if err != nil {
			return err
		}
		return formatter.Result(names, func(w io.Writer) error {
			if len(names) == 0 {
				outln(w, "No backups found.")
				return nil
			}
			for _, n := range names {
				outln(w, svc.Path(n))
			}
			return nil
		})
	}

	password, err := promptNewPasswordFn("Enter backup password: ")
	if err != nil {
		return err
	}
	defer zeroBytes(password)

	b, path, err := svc.Create(password)
	if err != nil {
		return err
	}
	logger.Debug("cli: backup written to %s", path)

	res := backupResult{Path: path, Manifest: &b.Manifest}
	return formatter.Result(res, func(w io.Writer) error {
		output.Successf(w, "Backup written to %s", path)
		displayManifest(w, res.Manifest)
		return nil
	})
}

func runWalletRestore(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	svc := newBackupService(s.store)

	if _, err := svc.Verify(restoreInput); err != nil {
		return err
	}

	password, err := promptPasswordFn("Enter backup password: ")
	if err != nil {
		return err
	}
	defer zeroBytes(password)

	var m *backup.Manifest
	if restoreVerify {
		m, err = svc.VerifyWithDecryption(restoreInput, password)
	} else {
		m, err = svc.Restore(restoreInput, password, restoreForce)
	}
	if err != nil {
		return err
	}

	res := backupResult{Path: restoreInput, Manifest: m, Restored: !restoreVerify}
	return formatter.Result(res, func(w io.Writer) error {
		if res.Restored {
			output.Successf(w, "Wallet restored from %s", restoreInput)
		} else {
			output.Successf(w, "Backup %s is intact", restoreInput)
		}
		displayManifest(w, m)
		return nil
	})
}

func displayManifest(w io.Writer, m *backup.Manifest) {
	tbl := output.NewTable("Field", "Value")
	tbl.AddRow("Created", m.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
	tbl.AddRow("Network", m.Network.String())
	tbl.AddRow("Accounts", fmt.Sprint(m.AccountCount))
	tbl.AddRow("Next index", fmt.Sprint(m.AccountIndexCounter))
	tbl.AddRow("Encryption", m.EncryptionMethod)
	tbl.AddRow("Checksum", m.ChecksumAlgorithm)
	_ = tbl.Render(w)
}

package state

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/mrz1836/ccdwallet/internal/wallet"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

// CreationResponse is the identity app's answer to an account-creation
// request: the new account's address and the unsigned credential
// deployment it prepared for our public key.
type CreationResponse struct {
	AccountAddress       string
	CredentialDeployment []byte
}

// IdentityApp asks the user's identity app, over whatever session
// transport the caller manages, to create an account for a public key.
// A declined request should wrap ErrRequestRejected.
type IdentityApp interface {
	RequestAccountCreation(ctx context.Context, publicKey string, network wallet.Network) (*CreationResponse, error)
}

// CredentialSubmitter sends a signed credential deployment to the chain
// and returns the transaction hash.
type CredentialSubmitter interface {
	SubmitCredential(ctx context.Context, deployment, signature []byte, network wallet.Network) (string, error)
}

// CreatedAccount is the result of a successful CreateAccount.
type CreatedAccount struct {
	Account wallet.Account `json:"account"`
	TxHash  string         `json:"txHash"`
}

// CreateAccount runs one account-creation attempt. The account index is
// reserved before the identity app is contacted, so a failed attempt
// still consumes it.
func (m *Machine) CreateAccount(ctx context.Context, app IdentityApp, submitter CredentialSubmitter) (*CreatedAccount, error) {
	counter, err := m.IncrementAccountIndex()
	if err != nil {
		return nil, err
	}
	index := counter - 1
	network := m.Network()

	keys, err := m.DeriveKeys(index)
	if err != nil {
		return nil, err
	}

	resp, err := app.RequestAccountCreation(ctx, keys.PublicKey, network)
	if err != nil {
		if walleterr.Is(err, walleterr.ErrRequestRejected) {
			return nil, err
		}
		return nil, walleterr.Remote("identity app", err)
	}
	if resp == nil || len(resp.CredentialDeployment) == 0 {
		return nil, walleterr.WithDetails(walleterr.ErrMalformedResponse, map[string]string{"reason": "empty credential deployment"})
	}

	account := wallet.Account{
		Address:      resp.AccountAddress,
		PublicKey:    keys.PublicKey,
		SigningKey:   keys.SigningKey,
		AccountIndex: index,
		Network:      network,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	priv, err := keys.PrivateKey()
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrWalletLocked, "signing key unusable")
	}
	digest := sha256.Sum256(resp.CredentialDeployment)
	sig := ed25519.Sign(priv, digest[:])
	clear(priv)

	hash, err := submitter.SubmitCredential(ctx, resp.CredentialDeployment, sig, network)
	if err != nil {
		return nil, walleterr.Remote("chain", err)
	}

	if err := m.AddAccount(account); err != nil {
		return nil, err
	}
	m.logger.Debug("state: account %d created at %s", index, wallet.ShortAddress(account.Address))
	return &CreatedAccount{Account: account, TxHash: hash}, nil
}

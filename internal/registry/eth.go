package registry

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"

	"github.com/swissborg/cert-ledger/internal/certificate"
)

// Backend is what EthLedger needs from a node connection. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// EthLedger keeps records in the Certification contract. Without a signing
// key it can only read.
type EthLedger struct {
	backend  Backend
	registry *Certification
	key      *ecdsa.PrivateKey
	timeout  time.Duration
	closer   func()
}

var _ Client = (*EthLedger)(nil)

// DialEthLedger connects to the node at rpcURL. privateKey is hex encoded and
// may be empty for a read-only client.
func DialEthLedger(
	ctx context.Context,
	rpcURL string,
	address common.Address,
	privateKey string,
	timeout time.Duration,
) (*EthLedger, error) {
	ethClient, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connect to ethereum node: %w", err)
	}

	l, err := NewEthLedger(ethClient, address, privateKey, timeout)
	if err != nil {
		ethClient.Close()
		return nil, err
	}
	l.closer = ethClient.Close
	return l, nil
}

func NewEthLedger(backend Backend, address common.Address, privateKey string, timeout time.Duration) (*EthLedger, error) {
	l := &EthLedger{
		backend:  backend,
		registry: NewCertification(address, backend),
		timeout:  timeout,
	}

	if privateKey != "" {
		key, err := crypto.HexToECDSA(privateKey)
		if err != nil {
			return nil, fmt.Errorf("prepare signing key: %w", err)
		}
		l.key = key
		log.WithField("account", crypto.PubkeyToAddress(key.PublicKey).Hex()).Info("ledger signing account loaded")
	}

	return l, nil
}

func (l *EthLedger) Close() {
	if l.closer != nil {
		l.closer()
	}
}

func (l *EthLedger) Register(ctx context.Context, rec certificate.Stored) error {
	if l.key == nil {
		return ErrReadOnly
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	exists, err := l.exists(ctx, rec.ID)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyExists
	}

	auth, err := l.getAuth(ctx)
	if err != nil {
		return transportErr("register", err)
	}

	tx, err := l.registry.GenerateCertificate(
		auth,
		rec.ID.String(),
		rec.Fields.SubjectID,
		rec.Fields.SubjectName,
		rec.Fields.CourseName,
		rec.Fields.OrganizationName,
		rec.StoragePointer,
	)
	if err != nil {
		return transportErr("register", fmt.Errorf("send generateCertificate: %w", err))
	}

	receipt, err := bind.WaitMined(ctx, l.backend, tx)
	if err != nil {
		return transportErr("register", fmt.Errorf("wait until transaction is mined: %w", err))
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return transportErr("register", fmt.Errorf("transaction %q failed", receipt.TxHash))
	}

	log.WithField("id", rec.ID.Short()).
		WithField("tx", receipt.TxHash.Hex()).
		Info("certificate registered on chain")

	return nil
}

func (l *EthLedger) Lookup(ctx context.Context, id certificate.Identifier) (certificate.Stored, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	exists, err := l.exists(ctx, id)
	if err != nil {
		return certificate.Stored{}, err
	}
	if !exists {
		return certificate.Stored{}, ErrNotFound
	}

	rec, err := l.registry.GetCertificate(&bind.CallOpts{Context: ctx}, id.String())
	if err != nil {
		return certificate.Stored{}, transportErr("lookup", err)
	}

	return certificate.Stored{
		ID: id,
		Fields: certificate.Fields{
			SubjectID:        rec.UID,
			SubjectName:      rec.CandidateName,
			CourseName:       rec.CourseName,
			OrganizationName: rec.OrgName,
		},
		StoragePointer: rec.IpfsHash,
	}, nil
}

func (l *EthLedger) Exists(ctx context.Context, id certificate.Identifier) (bool, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	return l.exists(ctx, id)
}

func (l *EthLedger) exists(ctx context.Context, id certificate.Identifier) (bool, error) {
	ok, err := l.registry.IsVerified(&bind.CallOpts{Context: ctx}, id.String())
	if err != nil {
		return false, transportErr("exists", err)
	}
	return ok, nil
}

func (l *EthLedger) getAuth(ctx context.Context) (*bind.TransactOpts, error) {
	chainID, err := l.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve chain id: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(l.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("create transaction signer from private key: %w", err)
	}
	auth.Context = ctx

	return auth, nil
}

func (l *EthLedger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}

package registry

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swissborg/cert-ledger/internal/certificate"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

var contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

// fakeChain answers read calls against the Certification ABI. Methods of
// Backend it does not override panic through the nil embedded interface.
type fakeChain struct {
	Backend
	records map[string]CertificationRecord
	err     error
	calls   int

	// revert makes mined transactions fail without touching records.
	revert bool
	sent   []*types.Transaction
}

func (f *fakeChain) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(1337), nil
}

func (f *fakeChain) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	// No base fee: the binding builds a legacy transaction.
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeChain) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeChain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 300_000, nil
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return uint64(len(f.sent)), nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	if f.revert {
		return nil
	}

	method, err := certificationABI.MethodById(tx.Data()[:4])
	if err != nil {
		return err
	}
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return err
	}
	f.records[args[0].(string)] = CertificationRecord{
		UID:           args[1].(string),
		CandidateName: args[2].(string),
		CourseName:    args[3].(string),
		OrgName:       args[4].(string),
		IpfsHash:      args[5].(string),
	}
	return nil
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	for _, tx := range f.sent {
		if tx.Hash() != hash {
			continue
		}
		status := types.ReceiptStatusSuccessful
		if f.revert {
			status = types.ReceiptStatusFailed
		}
		return &types.Receipt{Status: status, TxHash: hash, BlockNumber: big.NewInt(2)}, nil
	}
	return nil, ethereum.NotFound
}

func (f *fakeChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeChain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	method, err := certificationABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}

	rec, ok := f.records[args[0].(string)]
	switch method.Name {
	case "isVerified":
		return method.Outputs.Pack(ok)
	case "getCertificate":
		if !ok {
			return nil, errors.New("execution reverted: certificate does not exist")
		}
		return method.Outputs.Pack(rec.UID, rec.CandidateName, rec.CourseName, rec.OrgName, rec.IpfsHash)
	}
	return nil, errors.New("unexpected method " + method.Name)
}

func newFakeChain() *fakeChain {
	id := certificate.ComputeID(janeDoe).String()
	return &fakeChain{records: map[string]CertificationRecord{
		id: {
			UID:           janeDoe.SubjectID,
			CandidateName: janeDoe.SubjectName,
			CourseName:    janeDoe.CourseName,
			OrgName:       janeDoe.OrganizationName,
			IpfsHash:      "bafkreiexample",
		},
	}}
}

func TestEthLedgerLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		l, err := NewEthLedger(newFakeChain(), contractAddr, "", 0)
		require.NoError(t, err)

		got, err := l.Lookup(ctx, janeRecord().ID)
		require.NoError(t, err)
		assert.Equal(t, janeRecord(), got)

		again, err := l.Lookup(ctx, janeRecord().ID)
		require.NoError(t, err)
		assert.Equal(t, got, again)
	})

	t.Run("not found skips getCertificate", func(t *testing.T) {
		chain := newFakeChain()
		l, err := NewEthLedger(chain, contractAddr, "", 0)
		require.NoError(t, err)

		_, err = l.Lookup(ctx, certificate.Hash([]byte("unknown")))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 1, chain.calls)
	})

	t.Run("node failure is a transport error", func(t *testing.T) {
		chain := newFakeChain()
		chain.err = errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")
		l, err := NewEthLedger(chain, contractAddr, "", 0)
		require.NoError(t, err)

		_, err = l.Lookup(ctx, janeRecord().ID)
		require.Error(t, err)
		assert.True(t, IsTransport(err))
		assert.NotErrorIs(t, err, ErrNotFound)

		_, err = l.Exists(ctx, janeRecord().ID)
		assert.True(t, IsTransport(err))
	})
}

func TestEthLedgerRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("read only", func(t *testing.T) {
		l, err := NewEthLedger(newFakeChain(), contractAddr, "", 0)
		require.NoError(t, err)
		assert.ErrorIs(t, l.Register(ctx, janeRecord()), ErrReadOnly)
	})

	t.Run("already registered", func(t *testing.T) {
		l, err := NewEthLedger(newFakeChain(), contractAddr, testKey, 0)
		require.NoError(t, err)
		assert.ErrorIs(t, l.Register(ctx, janeRecord()), ErrAlreadyExists)
	})

	t.Run("bad key", func(t *testing.T) {
		_, err := NewEthLedger(newFakeChain(), contractAddr, "not-hex", 0)
		assert.Error(t, err)
	})

	john := certificate.Fields{
		SubjectID:        "STU002",
		SubjectName:      "John Roe",
		CourseName:       "Intro to Systems",
		OrganizationName: "Acme University",
	}
	johnRecord := certificate.Stored{ID: certificate.ComputeID(john), Fields: john, StoragePointer: "bafkreijohn"}

	t.Run("mined", func(t *testing.T) {
		chain := newFakeChain()
		l, err := NewEthLedger(chain, contractAddr, testKey, 0)
		require.NoError(t, err)

		require.NoError(t, l.Register(ctx, johnRecord))
		require.Len(t, chain.sent, 1)
		assert.Equal(t, &contractAddr, chain.sent[0].To())

		got, err := l.Lookup(ctx, johnRecord.ID)
		require.NoError(t, err)
		assert.Equal(t, johnRecord, got)

		assert.ErrorIs(t, l.Register(ctx, johnRecord), ErrAlreadyExists)
		assert.Len(t, chain.sent, 1)
	})

	t.Run("failed receipt is a transport error", func(t *testing.T) {
		chain := newFakeChain()
		chain.revert = true
		l, err := NewEthLedger(chain, contractAddr, testKey, 0)
		require.NoError(t, err)

		err = l.Register(ctx, johnRecord)
		require.Error(t, err)
		assert.True(t, IsTransport(err))
		assert.Contains(t, err.Error(), "failed")
		assert.Len(t, chain.sent, 1)

		exists, err := l.Exists(ctx, johnRecord.ID)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

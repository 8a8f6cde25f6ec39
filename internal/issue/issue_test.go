package issue

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swissborg/cert-ledger/internal/cas"
	"github.com/swissborg/cert-ledger/internal/certificate"
	"github.com/swissborg/cert-ledger/internal/extract"
	"github.com/swissborg/cert-ledger/internal/registry"
	"github.com/swissborg/cert-ledger/internal/render"
)

var janeDoe = certificate.Fields{
	SubjectID:        "STU001",
	SubjectName:      "Jane Doe",
	CourseName:       "Intro to Systems",
	OrganizationName: "Acme University",
}

type textRenderer struct{}

func (textRenderer) Bytes(f certificate.Fields, id certificate.Identifier) ([]byte, error) {
	return []byte(f.OrganizationName + "\n" + f.SubjectName + "\n" + id.String()), nil
}

type countingStore struct {
	cas.Store
	puts atomic.Int32
	err  error
}

func (s *countingStore) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	s.puts.Add(1)
	if s.err != nil {
		return cid.Undef, s.err
	}
	return s.Store.Put(ctx, data)
}

func newFixture(t *testing.T, renderer Renderer) (*Service, *registry.BadgerLedger, *countingStore) {
	t.Helper()
	db, err := registry.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	local, err := cas.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ledger := registry.NewBadgerLedger(db)
	store := &countingStore{Store: local}
	return NewService(renderer, store, ledger, 4), ledger, store
}

func TestIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("registers a trimmed record", func(t *testing.T) {
		svc, ledger, store := newFixture(t, textRenderer{})

		in := janeDoe
		in.SubjectName = "  Jane Doe  "
		issued, err := svc.Issue(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, certificate.ComputeID(janeDoe), issued.Record.ID)
		assert.Equal(t, janeDoe, issued.Record.Fields)

		got, err := ledger.Lookup(ctx, issued.Record.ID)
		require.NoError(t, err)
		assert.Equal(t, issued.Record, got)

		ptr, err := cas.ParsePointer(got.StoragePointer)
		require.NoError(t, err)
		doc, err := store.Get(ctx, ptr)
		require.NoError(t, err)
		assert.Equal(t, issued.Document, doc)
	})

	t.Run("invalid fields", func(t *testing.T) {
		svc, _, store := newFixture(t, textRenderer{})

		_, err := svc.Issue(ctx, certificate.Fields{SubjectID: "x"})
		assert.ErrorIs(t, err, certificate.ErrValidation)
		assert.Zero(t, store.puts.Load())
	})

	t.Run("names the certificate cannot print", func(t *testing.T) {
		svc, ledger, store := newFixture(t, render.New(""))
		f := janeDoe
		f.SubjectName = "Łukasz Żak"

		_, err := svc.Issue(ctx, f)
		assert.ErrorIs(t, err, certificate.ErrValidation)
		assert.Zero(t, store.puts.Load())

		ok, err := ledger.Exists(ctx, certificate.ComputeID(f))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("already issued is rejected before upload", func(t *testing.T) {
		svc, _, store := newFixture(t, textRenderer{})
		_, err := svc.Issue(ctx, janeDoe)
		require.NoError(t, err)

		_, err = svc.Issue(ctx, janeDoe)
		assert.ErrorIs(t, err, registry.ErrAlreadyExists)
		assert.Equal(t, int32(1), store.puts.Load())
	})

	t.Run("store failure leaves the ledger untouched", func(t *testing.T) {
		svc, ledger, store := newFixture(t, textRenderer{})
		store.err = &cas.TransportError{Op: "put", Err: errors.New("timeout")}

		_, err := svc.Issue(ctx, janeDoe)
		var te *cas.TransportError
		assert.True(t, errors.As(err, &te))

		ok, err := ledger.Exists(ctx, certificate.ComputeID(janeDoe))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("pdf document round trips", func(t *testing.T) {
		svc, _, _ := newFixture(t, render.New(""))

		issued, err := svc.Issue(ctx, janeDoe)
		require.NoError(t, err)

		ex, err := extract.Extract(issued.Document)
		require.NoError(t, err)
		assert.Equal(t, issued.Record.ID, ex.EmbeddedID)
	})
}

func TestIssueBatch(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newFixture(t, textRenderer{})

	records := []Record{
		{SubjectID: "S1", SubjectName: "Ann Lee", CourseName: "Go"},
		{SubjectID: "", SubjectName: "No Id", CourseName: "Go"},
		{SubjectID: "S3", SubjectName: "Bo Chan", CourseName: "Go"},
		{SubjectID: "S4", SubjectName: strings.Repeat("n", 101), CourseName: "Go"},
		{SubjectID: "S5", SubjectName: "Cy Dee", CourseName: "Rust"},
	}

	batchID, results := svc.IssueBatch(ctx, "Acme University", records)
	assert.NotEmpty(t, batchID)
	require.Len(t, results, len(records))

	wantStatus := []string{StatusSuccess, StatusError, StatusSuccess, StatusError, StatusSuccess}
	for i, r := range results {
		assert.Equal(t, wantStatus[i], r.Status, "row %d", i)
		assert.Equal(t, records[i].SubjectID, r.Fields.SubjectID, "row %d keeps input order", i)
		assert.Equal(t, "Acme University", r.Fields.OrganizationName)

		if r.Status == StatusError {
			assert.ErrorIs(t, r.Err, certificate.ErrValidation)
			continue
		}
		ok, err := ledger.Exists(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotEmpty(t, r.StoragePointer)
	}
}

// panicRenderer fails hard for one subject.
type panicRenderer struct {
	textRenderer
	subjectID string
}

func (r panicRenderer) Bytes(f certificate.Fields, id certificate.Identifier) ([]byte, error) {
	if f.SubjectID == r.subjectID {
		panic("renderer crashed")
	}
	return r.textRenderer.Bytes(f, id)
}

func TestIssueBatchDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, _, store := newFixture(t, textRenderer{})

	records := []Record{
		{SubjectID: "S1", SubjectName: "Ann Lee", CourseName: "Go"},
		{SubjectID: "S1", SubjectName: "Ann Lee", CourseName: "Go"},
		{SubjectID: " S1", SubjectName: "Ann Lee ", CourseName: "Go"},
		{SubjectID: "S2", SubjectName: "Bo Chan", CourseName: "Go"},
	}

	_, results := svc.IssueBatch(ctx, "Acme University", records)
	require.Len(t, results, len(records))

	assert.Equal(t, StatusSuccess, results[0].Status)
	for _, r := range results[1:3] {
		assert.Equal(t, StatusError, r.Status)
		assert.ErrorIs(t, r.Err, registry.ErrAlreadyExists)
	}
	assert.Equal(t, StatusSuccess, results[3].Status)
	assert.Equal(t, int32(2), store.puts.Load())
}

func TestIssueBatchPanickingRecord(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newFixture(t, panicRenderer{subjectID: "S2"})

	records := []Record{
		{SubjectID: "S1", SubjectName: "Ann Lee", CourseName: "Go"},
		{SubjectID: "S2", SubjectName: "Bo Chan", CourseName: "Go"},
	}

	_, results := svc.IssueBatch(ctx, "Acme University", records)
	require.Len(t, results, 2)

	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Equal(t, StatusError, results[1].Status)
	assert.ErrorIs(t, results[1].Err, ErrNotProcessed)
	assert.Equal(t, "S2", results[1].Fields.SubjectID)

	ok, err := ledger.Exists(ctx, certificate.ComputeID(certificate.Fields{
		SubjectID: "S2", SubjectName: "Bo Chan", CourseName: "Go", OrganizationName: "Acme University",
	}))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseCSV(t *testing.T) {
	t.Run("any column order", func(t *testing.T) {
		in := "\ufeffcourse_name,uid,candidate_name,extra\n" +
			"Go,S1,Ann Lee,x\n" +
			"\"Rust, Advanced\",S2,\"Bo Chan\"\n"

		got, err := ParseCSV(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, []Record{
			{SubjectID: "S1", SubjectName: "Ann Lee", CourseName: "Go"},
			{SubjectID: "S2", SubjectName: "Bo Chan", CourseName: "Rust, Advanced"},
		}, got)
	})

	t.Run("missing columns", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader("uid,name\nS1,Ann\n"))
		require.ErrorIs(t, err, ErrMissingColumns)
		assert.Contains(t, err.Error(), "candidate_name, course_name")
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader(""))
		assert.Error(t, err)
	})
}

package issue

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/swissborg/cert-ledger/internal/certificate"
	"github.com/swissborg/cert-ledger/internal/registry"
	"github.com/swissborg/cert-ledger/internal/taskqueue"
)

// ErrNotProcessed marks a record whose task ended without reporting a
// result, for example after a panic or expiry.
var ErrNotProcessed = errors.New("record was not processed")

// Record is one row of a bulk issuance. The organization is shared by the batch.
type Record struct {
	SubjectID   string `json:"uid" validate:"required"`
	SubjectName string `json:"candidate_name" validate:"required"`
	CourseName  string `json:"course_name" validate:"required"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BatchResult reports one record. Results keep the input order.
type BatchResult struct {
	Fields         certificate.Fields     `json:"fields"`
	ID             certificate.Identifier `json:"id,omitempty"`
	StoragePointer string                 `json:"storage_pointer,omitempty"`
	Document       []byte                 `json:"-"`
	Status         string                 `json:"status"`
	Err            error                  `json:"-"`
}

// IssueBatch issues every record independently on the worker pool. A failed
// record does not stop the others.
func (s *Service) IssueBatch(ctx context.Context, org string, records []Record) (string, []BatchResult) {
	batchID := uuid.NewString()
	logger := log.WithField("batch", batchID).WithField("records", len(records))
	logger.Info("bulk issuance started")

	results := make([]BatchResult, len(records))
	queue := taskqueue.NewQueue(s.workers)

	// Identical rows would race past the ledger's existence check; only the
	// first one is submitted.
	firstRow := make(map[certificate.Identifier]int, len(records))

	for i, r := range records {
		f := certificate.Fields{
			SubjectID:        r.SubjectID,
			SubjectName:      r.SubjectName,
			CourseName:       r.CourseName,
			OrganizationName: org,
		}

		id := certificate.ComputeID(f.Trimmed())
		if first, ok := firstRow[id]; ok {
			err := fmt.Errorf("%w: duplicate of row %d", registry.ErrAlreadyExists, first+1)
			logger.WithError(err).WithField("row", i).Warn("record not issued")
			results[i] = BatchResult{Fields: f, Status: StatusError, Err: err}
			continue
		}
		firstRow[id] = i
		results[i] = BatchResult{Fields: f}

		queue.Add(taskqueue.NewTask(
			func() (Issued, error) {
				return s.Issue(ctx, f)
			},
			func(issued Issued, err error) {
				if err != nil {
					logger.WithError(err).WithField("row", i).Warn("record not issued")
					results[i] = BatchResult{Fields: f, Status: StatusError, Err: err}
					return
				}
				results[i] = BatchResult{
					Fields:         issued.Record.Fields,
					ID:             issued.Record.ID,
					StoragePointer: issued.Record.StoragePointer,
					Document:       issued.Document,
					Status:         StatusSuccess,
				}
			},
			nil,
		))
	}
	queue.Close()

	var failed int
	for i, r := range results {
		if r.Status == "" {
			logger.WithField("row", i).Error("record finished without a result")
			results[i] = BatchResult{Fields: r.Fields, Status: StatusError, Err: ErrNotProcessed}
		}
		if results[i].Status != StatusSuccess {
			failed++
		}
	}
	logger.WithField("failed", failed).Info("bulk issuance finished")

	return batchID, results
}

var csvColumns = []string{"uid", "candidate_name", "course_name"}

var ErrMissingColumns = errors.New("missing required columns")

// ParseCSV reads records from a CSV with a header row naming at least the
// columns uid, candidate_name and course_name, in any order.
func ParseCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	var missing []string
	for _, c := range csvColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	get := func(row []string, col string) string {
		if i := idx[col]; i < len(row) {
			return row[i]
		}
		return ""
	}

	var out []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		out = append(out, Record{
			SubjectID:   get(row, "uid"),
			SubjectName: get(row, "candidate_name"),
			CourseName:  get(row, "course_name"),
		})
	}
	return out, nil
}

package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const janeID = "8ee9e5d0f3f61787b81936f853c0312ef5389a9870717c15543435461d1dd3b5"

func newGlobals(t *testing.T) (*Globals, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	cfg := fmt.Sprintf(`
Ledger:
  Backend: badger
  BadgerDir: %s
Store:
  Backend: localfs
  Dir: %s
Bulk:
  Workers: 2
`, filepath.Join(dir, "ledger"), filepath.Join(dir, "documents"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	var out bytes.Buffer
	return &Globals{Config: path, Out: &out}, &out
}

func issueJane(t *testing.T, g *Globals) string {
	t.Helper()

	outDir := t.TempDir()
	cmd := &IssueCmd{
		UID:          "STU001",
		Name:         "Jane Doe",
		Course:       "Intro to Systems",
		Organization: "Acme University",
		OutDir:       outDir,
	}
	require.NoError(t, cmd.Run(context.Background(), g))

	matches, err := filepath.Glob(filepath.Join(outDir, "STU001_Jane_Doe_*.pdf"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	return matches[0]
}

func TestIssueCmd_Run(t *testing.T) {
	g, out := newGlobals(t)
	issueJane(t, g)

	assert.Contains(t, out.String(), "Certificate ID: "+janeID)

	t.Run("duplicate", func(t *testing.T) {
		cmd := &IssueCmd{
			UID:          "STU001",
			Name:         "Jane Doe",
			Course:       "Intro to Systems",
			Organization: "Acme University",
			OutDir:       t.TempDir(),
		}
		err := cmd.Run(context.Background(), g)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})
}

func TestIssueCmd_RunNameWithPathSeparators(t *testing.T) {
	g, out := newGlobals(t)
	outDir := t.TempDir()

	cmd := &IssueCmd{
		UID:          "STU9",
		Name:         "AC/DC Fan",
		Course:       "Intro to Systems",
		Organization: "Acme University",
		OutDir:       outDir,
	}
	require.NoError(t, cmd.Run(context.Background(), g))

	matches, err := filepath.Glob(filepath.Join(outDir, "STU9_AC_DC_Fan_*.pdf"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Contains(t, out.String(), "Written to:     "+matches[0])
}

func TestFileName(t *testing.T) {
	for in, want := range map[string]string{
		"STU001_Jane_Doe_March_07,_2026": "STU001_Jane_Doe_March_07,_2026",
		"STU9_AC/DC_Fan":                 "STU9_AC_DC_Fan",
		`x\..\..\etc`:                    "x_.._.._etc",
		"../..":                          "_",
		"..":                             "certificate",
	} {
		assert.Equal(t, want, fileName(in), in)
	}
}

func TestLookupCmd_Run(t *testing.T) {
	g, out := newGlobals(t)
	issueJane(t, g)

	t.Run("found", func(t *testing.T) {
		out.Reset()
		cmd := &LookupCmd{ID: strings.ToUpper(janeID)}
		require.NoError(t, cmd.Run(context.Background(), g))

		assert.Contains(t, out.String(), "isVerified: true")
		assert.Contains(t, out.String(), "Candidate Name: Jane Doe")
		assert.Contains(t, out.String(), "Storage:        bafkrei")
	})

	t.Run("not found", func(t *testing.T) {
		out.Reset()
		cmd := &LookupCmd{ID: strings.Repeat("ab", 32)}
		require.NoError(t, cmd.Run(context.Background(), g))

		assert.Contains(t, out.String(), "isVerified: false")
		assert.Contains(t, out.String(), "Certificate ID not found on-chain.")
	})

	t.Run("malformed id is just not found", func(t *testing.T) {
		out.Reset()
		cmd := &LookupCmd{ID: "not-a-hash"}
		require.NoError(t, cmd.Run(context.Background(), g))
		assert.Contains(t, out.String(), "Certificate ID not found on-chain.")
	})

	t.Run("bad config", func(t *testing.T) {
		cmd := &LookupCmd{ID: janeID}
		err := cmd.Run(context.Background(), &Globals{Config: filepath.Join(t.TempDir(), "missing.yaml"), Out: out})
		assert.Error(t, err)
	})
}

func TestVerifyCmd_Run(t *testing.T) {
	g, out := newGlobals(t)
	pdfPath := issueJane(t, g)

	t.Run("issued document", func(t *testing.T) {
		out.Reset()
		cmd := &VerifyCmd{File: pdfPath}
		require.NoError(t, cmd.Run(context.Background(), g))

		assert.Contains(t, out.String(), "Outcome: VERIFIED")
		assert.Contains(t, out.String(), janeID+" (embedded)")
	})

	t.Run("not a pdf", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fake.pdf")
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

		out.Reset()
		cmd := &VerifyCmd{File: path}
		err := cmd.Run(context.Background(), g)
		require.ErrorIs(t, err, ErrNotVerified)
		assert.Contains(t, out.String(), "Outcome: TAMPERED")
	})
}

func TestBulkCmd_Run(t *testing.T) {
	g, out := newGlobals(t)

	csvPath := filepath.Join(t.TempDir(), "students.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"uid,candidate_name,course_name\n"+
			"STU001,Jane Doe,Intro to Systems\n"+
			"STU002,John Roe,Intro to Systems\n"), 0o600))

	outDir := t.TempDir()
	cmd := &BulkCmd{File: csvPath, Organization: "Acme University", OutDir: outDir}
	require.NoError(t, cmd.Run(context.Background(), g))

	assert.Contains(t, out.String(), "success STU001 "+janeID)
	matches, err := filepath.Glob(filepath.Join(outDir, "*.pdf"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	t.Run("unsafe names are still saved", func(t *testing.T) {
		unsafe := filepath.Join(t.TempDir(), "unsafe.csv")
		require.NoError(t, os.WriteFile(unsafe, []byte(
			"uid,candidate_name,course_name\n"+
				"STU010,AC/DC Fan,Intro to Systems\n"+
				"STU011,Kim Park,Intro to Systems\n"), 0o600))

		dir := t.TempDir()
		require.NoError(t, (&BulkCmd{File: unsafe, Organization: "Acme University", OutDir: dir}).Run(context.Background(), g))

		matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})

	t.Run("rerun fails every record", func(t *testing.T) {
		err := cmd.Run(context.Background(), g)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 of 2 records failed")
	})

	t.Run("missing columns", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.csv")
		require.NoError(t, os.WriteFile(bad, []byte("uid,name\nSTU001,Jane\n"), 0o600))

		err := (&BulkCmd{File: bad, Organization: "Acme University", OutDir: outDir}).Run(context.Background(), g)
		assert.Error(t, err)
	})
}

package process

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tei-extract/grobid-client/internal/testutil"
	"github.com/tei-extract/grobid-client/pkg/batch"
	"github.com/tei-extract/grobid-client/pkg/client"
	"github.com/tei-extract/grobid-client/pkg/writer"
)

func newTestProcessor(t *testing.T, mock *testutil.MockGrobid, w *writer.Writer) *FileProcessor {
	t.Helper()

	c, err := client.New(client.Config{
		BaseURL: mock.URL(),
		Policy:  client.RetryPolicy{Delay: 10 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}

	p, err := New(Config{
		Client:  c,
		Writer:  w,
		Service: client.ServiceFulltext,
		Options: client.Options{GenerateIDs: true},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("%PDF-1.4\ncontent\n%%EOF"), 0o644); err != nil {
		t.Fatalf("Failed to write PDF: %v", err)
	}
	return path
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("Expected error without client")
	}

	mock := testutil.NewMockGrobid()
	defer mock.Close()
	c, err := client.New(client.Config{BaseURL: mock.URL()})
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}
	if _, err := New(Config{Client: c}); err == nil {
		t.Error("Expected error without writer")
	}
}

// TestProcess_SkipBeforeNetwork verifies an existing output short-circuits
// the pipeline: zero requests reach the server.
func TestProcess_SkipBeforeNetwork(t *testing.T) {
	mock := testutil.NewMockGrobid()
	defer mock.Close()

	dir := t.TempDir()
	src := writePDF(t, dir, "paper.pdf")

	w := &writer.Writer{}
	if err := os.WriteFile(w.DestPath(src), []byte("old result"), 0o644); err != nil {
		t.Fatalf("Failed to pre-create destination: %v", err)
	}

	p := newTestProcessor(t, mock, w)
	outcome := p.Process(context.Background(), src)

	if outcome.Status != batch.OutcomeSkipped {
		t.Errorf("Status = %v, want skipped", outcome.Status)
	}
	if mock.TotalRequestCount() != 0 {
		t.Errorf("Recorded %d requests, want 0 for a skipped file", mock.TotalRequestCount())
	}

	got, _ := os.ReadFile(w.DestPath(src))
	if string(got) != "old result" {
		t.Error("Skipped file's existing output must be untouched")
	}
}

// TestProcess_RoundTrip verifies the written output equals the response
// body byte for byte.
func TestProcess_RoundTrip(t *testing.T) {
	mock := testutil.NewMockGrobid()
	defer mock.Close()

	body := `<TEI xmlns="http://www.tei-c.org/ns/1.0"><text>exact bytes</text></TEI>`
	mock.SetServiceResponse(string(client.ServiceFulltext), testutil.NewTEIResponse(body))

	dir := t.TempDir()
	src := writePDF(t, dir, "paper.pdf")

	w := &writer.Writer{}
	p := newTestProcessor(t, mock, w)

	outcome := p.Process(context.Background(), src)
	if outcome.Status != batch.OutcomeWritten {
		t.Fatalf("Status = %v (%s), want written", outcome.Status, outcome.Reason)
	}

	got, err := os.ReadFile(outcome.Dest)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if string(got) != body {
		t.Errorf("Output = %q, want the response body verbatim", got)
	}
}

// TestProcess_ForceOverwrites verifies force re-submits and replaces an
// existing output.
func TestProcess_ForceOverwrites(t *testing.T) {
	mock := testutil.NewMockGrobid()
	defer mock.Close()

	mock.SetServiceResponse(string(client.ServiceFulltext), testutil.NewTEIResponse("fresh result"))

	dir := t.TempDir()
	src := writePDF(t, dir, "paper.pdf")

	w := &writer.Writer{Force: true}
	if err := os.WriteFile(w.DestPath(src), []byte("stale result"), 0o644); err != nil {
		t.Fatalf("Failed to pre-create destination: %v", err)
	}

	p := newTestProcessor(t, mock, w)
	outcome := p.Process(context.Background(), src)

	if outcome.Status != batch.OutcomeWritten {
		t.Fatalf("Status = %v (%s), want written", outcome.Status, outcome.Reason)
	}
	if mock.ServiceRequestCount(string(client.ServiceFulltext)) != 1 {
		t.Error("Expected the gateway to be invoked under force")
	}

	got, _ := os.ReadFile(w.DestPath(src))
	if string(got) != "fresh result" {
		t.Errorf("Output = %q, want the fresh body", got)
	}
}

func TestProcess_PermanentFailure(t *testing.T) {
	mock := testutil.NewMockGrobid()
	defer mock.Close()

	mock.SetServiceResponse(string(client.ServiceFulltext), testutil.NewFailureResponse(http.StatusBadRequest))

	dir := t.TempDir()
	src := writePDF(t, dir, "paper.pdf")

	w := &writer.Writer{}
	p := newTestProcessor(t, mock, w)

	outcome := p.Process(context.Background(), src)
	if outcome.Status != batch.OutcomeFailed {
		t.Errorf("Status = %v, want failed", outcome.Status)
	}

	if _, err := os.Stat(w.DestPath(src)); !os.IsNotExist(err) {
		t.Error("No output file may exist after a permanent failure")
	}
}

// TestProcess_OverloadedRecovery exercises the full 503 path end to end:
// two overload responses, then success, one written output.
func TestProcess_OverloadedRecovery(t *testing.T) {
	mock := testutil.NewMockGrobid()
	defer mock.Close()

	mock.FailTimes(string(client.ServiceFulltext), http.StatusServiceUnavailable, 2, "recovered")

	dir := t.TempDir()
	src := writePDF(t, dir, "paper.pdf")

	w := &writer.Writer{}
	p := newTestProcessor(t, mock, w)

	outcome := p.Process(context.Background(), src)
	if outcome.Status != batch.OutcomeWritten {
		t.Fatalf("Status = %v (%s), want written", outcome.Status, outcome.Reason)
	}
	if got := mock.ServiceRequestCount(string(client.ServiceFulltext)); got != 3 {
		t.Errorf("Submissions = %d, want exactly 3", got)
	}

	got, _ := os.ReadFile(outcome.Dest)
	if string(got) != "recovered" {
		t.Errorf("Output = %q, want %q", got, "recovered")
	}
}

func TestProcess_ValidateRejectsBrokenPDF(t *testing.T) {
	mock := testutil.NewMockGrobid()
	defer mock.Close()

	dir := t.TempDir()
	src := filepath.Join(dir, "junk.pdf")
	if err := os.WriteFile(src, []byte("this is not a pdf at all"), 0o644); err != nil {
		t.Fatalf("Failed to write junk file: %v", err)
	}

	c, err := client.New(client.Config{BaseURL: mock.URL()})
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}
	p, err := New(Config{
		Client:   c,
		Writer:   &writer.Writer{},
		Service:  client.ServiceFulltext,
		Validate: true,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	outcome := p.Process(context.Background(), src)
	if outcome.Status != batch.OutcomeFailed {
		t.Errorf("Status = %v, want failed for a broken PDF", outcome.Status)
	}
	if mock.TotalRequestCount() != 0 {
		t.Error("A locally rejected file must not reach the server")
	}
}

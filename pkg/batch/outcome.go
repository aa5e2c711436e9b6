package batch

import "context"

// OutcomeStatus is the terminal state of one processed file.
type OutcomeStatus string

const (
	// OutcomeWritten means the extraction result was persisted.
	OutcomeWritten OutcomeStatus = "written"

	// OutcomeSkipped means the file was not submitted, usually because
	// its output already exists.
	OutcomeSkipped OutcomeStatus = "skipped"

	// OutcomeFailed means a permanent request or I/O failure. Isolated
	// to the file; the run continues.
	OutcomeFailed OutcomeStatus = "failed"
)

// Outcome is the terminal result of one unit of work.
type Outcome struct {
	Status OutcomeStatus
	Path   string
	Dest   string
	Reason string
}

// Written builds a success outcome.
func Written(path, dest string) Outcome {
	return Outcome{Status: OutcomeWritten, Path: path, Dest: dest}
}

// Skipped builds a skip outcome with its reason.
func Skipped(path, dest, reason string) Outcome {
	return Outcome{Status: OutcomeSkipped, Path: path, Dest: dest, Reason: reason}
}

// Failed builds a failure outcome with its reason.
func Failed(path, reason string) Outcome {
	return Outcome{Status: OutcomeFailed, Path: path, Reason: reason}
}

// Processor turns one input path into a terminal Outcome. Implementations
// must be safe for concurrent use; the scheduler calls Process from every
// worker in the pool.
type Processor interface {
	Process(ctx context.Context, path string) Outcome
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, path string) Outcome

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, path string) Outcome {
	return f(ctx, path)
}

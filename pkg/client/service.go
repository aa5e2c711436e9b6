package client

import "fmt"

// Service identifies a GROBID extraction service.
type Service string

const (
	// ServiceFulltext extracts the full text body of a document.
	ServiceFulltext Service = "processFulltextDocument"

	// ServiceHeader extracts header metadata only.
	ServiceHeader Service = "processHeaderDocument"

	// ServiceReferences extracts the bibliographical references.
	ServiceReferences Service = "processReferences"
)

// ParseService validates a service name from config or CLI input.
func ParseService(name string) (Service, error) {
	switch Service(name) {
	case ServiceFulltext, ServiceHeader, ServiceReferences:
		return Service(name), nil
	default:
		return "", fmt.Errorf("unknown service %q (one of %s, %s, %s)",
			name, ServiceFulltext, ServiceHeader, ServiceReferences)
	}
}

// Options are the extraction options shared by every request in a run.
// They are set once at startup and never mutated afterwards, so they are
// safe for concurrent reads from all workers.
type Options struct {
	// GenerateIDs asks GROBID to generate random xml:id attributes on
	// textual elements of the result.
	GenerateIDs bool

	// ConsolidateHeader enables consolidation of header metadata against
	// bibliographical services.
	ConsolidateHeader bool

	// ConsolidateCitations enables consolidation of extracted references.
	ConsolidateCitations bool

	// TEICoordinates adds original PDF bounding box coordinates to the
	// extracted elements.
	TEICoordinates bool

	// CoordinateTypes is the comma-separated element list sent with
	// tei_coordinates (e.g. "persName,figure,ref,biblStruct,formula").
	CoordinateTypes string
}

// Request describes one document submission. Immutable once created; the
// identical value is resubmitted verbatim after an overload wait.
type Request struct {
	FilePath string
	Service  Service
	Options  Options
}

// Response is the raw result of one submission attempt. Status codes are
// not interpreted here; classification is the retry policy's job.
type Response struct {
	StatusCode int
	Body       []byte
}

package client

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		resp     *Response
		err      error
		expected Class
	}{
		{"success", &Response{StatusCode: 200}, nil, ClassOK},
		{"overloaded", &Response{StatusCode: 503}, nil, ClassOverloaded},
		{"bad request", &Response{StatusCode: 400}, nil, ClassPermanent},
		{"not found", &Response{StatusCode: 404}, nil, ClassPermanent},
		{"server error", &Response{StatusCode: 500}, nil, ClassPermanent},
		{"transport failure", nil, errors.New("connection refused"), ClassNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.resp, tt.err); got != tt.expected {
				t.Errorf("Classify() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRetriable(t *testing.T) {
	tests := []struct {
		class    Class
		expected bool
	}{
		{ClassOK, false},
		{ClassOverloaded, true},
		{ClassPermanent, false},
		{ClassNetwork, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			if got := retriable(tt.class); got != tt.expected {
				t.Errorf("retriable(%v) = %v, want %v", tt.class, got, tt.expected)
			}
		})
	}
}

func TestGrobidError(t *testing.T) {
	inner := errors.New("dial tcp: connection refused")

	e := &GrobidError{
		StatusCode: 0,
		Class:      ClassNetwork,
		Message:    "transport failure",
		Err:        inner,
	}

	if !errors.Is(e, inner) {
		t.Error("Expected GrobidError to unwrap to inner error")
	}

	msg := e.Error()
	if msg == "" {
		t.Fatal("Expected non-empty error message")
	}

	e2 := &GrobidError{StatusCode: 400, Class: ClassPermanent, Message: "Bad Request"}
	if e2.Error() == "" {
		t.Fatal("Expected non-empty error message")
	}
	if e2.Unwrap() != nil {
		t.Error("Expected nil unwrap without inner error")
	}
}

func TestParseService(t *testing.T) {
	tests := []struct {
		input   string
		want    Service
		wantErr bool
	}{
		{"processFulltextDocument", ServiceFulltext, false},
		{"processHeaderDocument", ServiceHeader, false},
		{"processReferences", ServiceReferences, false},
		{"processCitations", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseService(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseService(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseService(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

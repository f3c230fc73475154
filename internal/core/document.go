package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Document is the import/export format: both collections in one object.
type Document struct {
	Transactions []Transaction `json:"transactions"`
	Targets      []Target      `json:"targets"`
}

// ImportedDocument is a decoded Document that also records which collections
// were present. A collection missing from the input is left untouched on
// import.
type ImportedDocument struct {
	Document
	HasTransactions bool
	HasTargets      bool
}

// EncodeDocument writes doc as indented JSON. Nil collections are written as
// empty arrays so the output is stable.
func EncodeDocument(w io.Writer, doc Document) error {
	if doc.Transactions == nil {
		doc.Transactions = []Transaction{}
	}
	if doc.Targets == nil {
		doc.Targets = []Target{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

// DecodeDocument reads a whole document. Any syntax or type error is
// reported as ErrInvalidDocument; nothing is returned partially.
func DecodeDocument(r io.Reader) (ImportedDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImportedDocument{}, fmt.Errorf("read document: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ImportedDocument{}, fmt.Errorf("%w: empty input", ErrInvalidDocument)
	}

	var raw struct {
		Transactions json.RawMessage `json:"transactions"`
		Targets      json.RawMessage `json:"targets"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ImportedDocument{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var out ImportedDocument
	if present(raw.Transactions) {
		if err := json.Unmarshal(raw.Transactions, &out.Transactions); err != nil {
			return ImportedDocument{}, fmt.Errorf("%w: transactions: %v", ErrInvalidDocument, err)
		}
		out.HasTransactions = true
	}
	if present(raw.Targets) {
		if err := json.Unmarshal(raw.Targets, &out.Targets); err != nil {
			return ImportedDocument{}, fmt.Errorf("%w: targets: %v", ErrInvalidDocument, err)
		}
		out.HasTargets = true
	}
	return out, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

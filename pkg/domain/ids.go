package domain

import (
	"github.com/google/uuid"

	dErrors "semaforo/pkg/domain-errors"
)

// Typed identifiers keep organization and document IDs from being swapped at
// call sites. Construct them with the Parse functions at trust boundaries.
type (
	OrganizationID uuid.UUID
	DocumentID     uuid.UUID
)

// NewOrganizationID returns a random organization ID.
func NewOrganizationID() OrganizationID { return OrganizationID(uuid.New()) }

// NewDocumentID returns a random document ID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// ParseOrganizationID parses external input into an OrganizationID.
//
// Errors: returns CodeInvalidInput for empty, malformed, or nil UUIDs.
func ParseOrganizationID(s string) (OrganizationID, error) {
	u, err := parseUUID(s, "organization ID")
	if err != nil {
		return OrganizationID{}, err
	}
	return OrganizationID(u), nil
}

// ParseDocumentID parses external input into a DocumentID.
//
// Errors: returns CodeInvalidInput for empty, malformed, or nil UUIDs.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document ID")
	if err != nil {
		return DocumentID{}, err
	}
	return DocumentID(u), nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

func (id OrganizationID) String() string { return uuid.UUID(id).String() }
func (id OrganizationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id OrganizationID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *OrganizationID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrganizationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id DocumentID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

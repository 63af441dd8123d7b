package models

import id "semaforo/pkg/domain"

// CreateRequest files a new document for an organization. IssueDate accepts
// the layouts understood by semaforo.ParseDate; empty means undated.
type CreateRequest struct {
	OrganizationID string `json:"organization_id"`
	Category       string `json:"category"`
	Title          string `json:"title"`
	IssueDate      string `json:"issue_date"`
}

// UpdateRequest changes the mutable fields of an active document. Nil fields
// are left untouched; an empty IssueDate clears the date.
type UpdateRequest struct {
	Title     *string `json:"title,omitempty"`
	IssueDate *string `json:"issue_date,omitempty"`
}

// ImportRow is one line of a bulk import file.
type ImportRow struct {
	OrganizationID string `json:"organization_id"`
	Category       string `json:"category"`
	Title          string `json:"title"`
	IssueDate      string `json:"issue_date"`
}

// ImportFailure explains why a row was skipped. Row is 1-based.
type ImportFailure struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportReport summarizes a bulk import. Organizations lists every
// organization whose cache was refreshed, in first-seen order.
type ImportReport struct {
	Created       int                 `json:"created"`
	Updated       int                 `json:"updated"`
	Failed        []ImportFailure     `json:"failed"`
	Organizations []id.OrganizationID `json:"organizations"`
}

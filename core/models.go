package core

import (
	"slices"
	"strings"
	"time"
)

// Status tracks where a source file is in the ingestion lifecycle.
// A file moves pending -> processing -> completed or failed; a completed
// file is never reprocessed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// FileCategory identifies which importer owns a source file.
type FileCategory string

const (
	CategoryBill   FileCategory = "bill"
	CategoryVote   FileCategory = "vote"
	CategoryPeople FileCategory = "people"
)

// Valid reports whether the category is one of the known file categories.
func (c FileCategory) Valid() bool {
	switch c {
	case CategoryBill, CategoryVote, CategoryPeople:
		return true
	}
	return false
}

// VoteValue is a single legislator's position on a roll call.
type VoteValue string

const (
	VoteYea    VoteValue = "Yea"
	VoteNay    VoteValue = "Nay"
	VoteNV     VoteValue = "NV"
	VoteAbsent VoteValue = "Absent"
)

// Valid reports whether the value is part of the closed vote enumeration.
func (v VoteValue) Valid() bool {
	switch v {
	case VoteYea, VoteNay, VoteNV, VoteAbsent:
		return true
	}
	return false
}

// Bill is a legislative bill keyed by its external numeric id.
// Optional metadata fields are pointers; nil maps to SQL NULL.
type Bill struct {
	BillID             int64
	BillNumber         string
	BillType           string
	Title              string
	Description        string
	InferredCategories []string // populated by the classifier during import
	Subjects           []string
	CommitteeName      *string
	LastAction         *string
	LastActionDate     *time.Time
	PDFURL             *string
	Embedding          []float32 // populated by the bulk embedding processor
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Sponsor is a legislator keyed by its external numeric id.
type Sponsor struct {
	SponsorID int64
	Name      string
	Party     string
	District  string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RollCall is a recorded chamber vote on a bill. BillID is a soft
// reference: the referenced bill may not have been imported yet.
type RollCall struct {
	RollCallID int64
	BillID     int64
	Date       time.Time
	Yea        int
	Nay        int
	NV         int
	Absent     int
	Passed     bool
	Chamber    string
	ChamberID  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RollCallVote is one legislator's vote on one roll call, composite-keyed
// by (RollCallID, SponsorID).
type RollCallVote struct {
	RollCallID int64
	SponsorID  int64
	Vote       VoteValue
}

// SchemaDocument is a generated table-DDL description. It is the parent of
// independently embedded DDL chunks; similarity hits against chunks always
// resolve back to the parent DDL.
type SchemaDocument struct {
	PrimaryKey int64
	TableName  string
	TableDDL   string
	Updated    time.Time
}

// ValueRecord is a raw-record JSON snapshot from an imported value table,
// optionally carrying an embedding for "values similar to X" lookups.
type ValueRecord struct {
	PID        int64
	JSONString string
	Embedding  []float32
}

// SimilarBill is a bill returned from vector similarity search together
// with its similarity score (1 - cosine distance).
type SimilarBill struct {
	BillNumber         string
	Title              string
	Description        string
	Subjects           []string
	InferredCategories []string
	CommitteeName      *string
	LastAction         *string
	LastActionDate     *time.Time
	Similarity         float32
}

// SchemaCandidate is one schema-retrieval hit: the parent DDL plus example
// column values semantically close to the query.
type SchemaCandidate struct {
	DDL                  string
	PossibleColumnValues []string
}

// ColumnInfo describes one inferred column of a value table.
type ColumnInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// TableInfo is an inferred value-table schema produced from a sample of
// delimited records.
type TableInfo struct {
	FileName  string                `json:"file_name"`
	TableName string                `json:"table_name"`
	Summary   string                `json:"summary"`
	Columns   map[string]ColumnInfo `json:"columns"`
}

// ColumnNames returns the inferred column names in deterministic order.
func (t *TableInfo) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CreateTableDDL renders the inferred schema as annotated CREATE TABLE
// text. This is the document registered for schema retrieval, not the
// statement executed against the database.
func (t *TableInfo) CreateTableDDL() string {
	var sb strings.Builder
	sb.WriteString("-- ")
	sb.WriteString(t.Summary)
	sb.WriteString("\nCREATE TABLE ")
	sb.WriteString(t.TableName)
	sb.WriteString(" (\n")
	names := t.ColumnNames()
	for i, name := range names {
		col := t.Columns[name]
		sb.WriteString("  ")
		sb.WriteString(name)
		sb.WriteString(" ")
		sb.WriteString(col.Type)
		if i < len(names)-1 {
			sb.WriteString(",")
		}
		if col.Description != "" {
			sb.WriteString(" -- ")
			sb.WriteString(col.Description)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(")")
	return sb.String()
}

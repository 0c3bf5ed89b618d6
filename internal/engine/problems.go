package engine

import (
	"fmt"

	"github.com/DeusData/symbol-indexer/internal/model"
)

// Problems collects the diagnostics of one unit.
type Problems struct {
	buildID string
	fileID  int64
	path    string
	list    []model.Problem
	errors  int
}

// NewProblems returns an empty collector for a file.
func NewProblems(buildID string, fileID int64, path string) *Problems {
	return &Problems{buildID: buildID, fileID: fileID, path: path}
}

// Add records a diagnostic at the start of r.
func (p *Problems) Add(sev model.Severity, r model.Range, msg string) {
	p.list = append(p.list, model.Problem{
		BuildID:   p.buildID,
		FileID:    p.fileID,
		Path:      p.path,
		Severity:  sev,
		StartLine: r.StartLine,
		StartCol:  r.StartCol,
		Message:   msg,
	})
	if sev == model.SeverityError {
		p.errors++
	}
}

// Addf is Add with formatting.
func (p *Problems) Addf(sev model.Severity, r model.Range, format string, args ...any) {
	p.Add(sev, r, fmt.Sprintf(format, args...))
}

// List returns the diagnostics in the order they were added.
func (p *Problems) List() []model.Problem {
	return p.list
}

// ErrorCount is the number of error-severity diagnostics.
func (p *Problems) ErrorCount() int {
	return p.errors
}

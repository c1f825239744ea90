// Package services provides file parsing and infrastructure services used by the business flows
package services

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/amirphl/workforce-ledger/utils"
	"github.com/xuri/excelize/v2"
)

// Input formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Required export columns, in export order
const (
	ColAgentName        = "Agent name"
	ColProfileID        = "Profile ID"
	ColCallLogID        = "Call Log ID"
	ColLogTime          = "Log Time"
	ColLogType          = "Log Type"
	ColState            = "State"
	ColCallType         = "Call type"
	ColOriginalCampaign = "Original campaign"
	ColCurrentCampaign  = "Current campaign"
	ColEmber            = "Ember"
)

// RequiredColumns lists every column an export must carry
var RequiredColumns = []string{
	ColAgentName, ColProfileID, ColCallLogID, ColLogTime, ColLogType,
	ColState, ColCallType, ColOriginalCampaign, ColCurrentCampaign, ColEmber,
}

var ErrUnsupportedFormat = errors.New("unsupported call log format")

// MissingColumnsError reports required columns absent from the header
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// CallLogRecord is one parsed export row with trimmed cells
type CallLogRecord struct {
	Line             int // 1-based line in the file, header is line 1
	AgentName        string
	ProfileID        string
	CallLogID        string
	LogTime          *time.Time
	LogType          string
	State            string
	CallType         string
	OriginalCampaign string
	CurrentCampaign  string
	Ember            string
}

// CallLogTable is a parsed export before column validation
type CallLogTable struct {
	Header []string
	rows   [][]string
	lines  []int
	index  map[string]int
}

// DetectFormat picks the input format from an explicit value or the file extension
func DetectFormat(format, name string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
		if format == "" {
			format = FormatCSV
		}
	}
	switch strings.ToLower(format) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ReadCallLogs parses a CSV or XLSX export into a table
func ReadCallLogs(r io.Reader, format string) (*CallLogTable, error) {
	switch format {
	case FormatCSV:
		return readCSV(r)
	case FormatXLSX:
		return readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func readCSV(r io.Reader) (*CallLogTable, error) {
	br := stripUTF8BOM(bufio.NewReader(r))
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("call log file is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	table := newTable(header)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read call log row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		table.add(record, line)
	}
	return table, nil
}

func readXLSX(r io.Reader) (*CallLogTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, errors.New("call log file is empty")
	}

	table := newTable(rows[0])
	for i, row := range rows[1:] {
		table.add(row, i+2)
	}
	return table, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func newTable(header []string) *CallLogTable {
	t := &CallLogTable{
		Header: make([]string, len(header)),
		index:  make(map[string]int, len(header)),
	}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.Header[i] = h
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	return t
}

func (t *CallLogTable) add(record []string, line int) {
	blank := true
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			blank = false
			break
		}
	}
	if blank {
		return
	}
	t.rows = append(t.rows, record)
	t.lines = append(t.lines, line)
}

// Len returns the number of non-blank data rows
func (t *CallLogTable) Len() int {
	return len(t.rows)
}

// Validate fails with a *MissingColumnsError when any required column is absent
func (t *CallLogTable) Validate() error {
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := t.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}

// Records converts every data row; call Validate first
func (t *CallLogTable) Records() []CallLogRecord {
	out := make([]CallLogRecord, len(t.rows))
	for i, row := range t.rows {
		cell := func(col string) string {
			idx, ok := t.index[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		out[i] = CallLogRecord{
			Line:             t.lines[i],
			AgentName:        cell(ColAgentName),
			ProfileID:        cell(ColProfileID),
			CallLogID:        cell(ColCallLogID),
			LogTime:          utils.ParseLogTime(cell(ColLogTime)),
			LogType:          cell(ColLogType),
			State:            cell(ColState),
			CallType:         cell(ColCallType),
			OriginalCampaign: cell(ColOriginalCampaign),
			CurrentCampaign:  cell(ColCurrentCampaign),
			Ember:            cell(ColEmber),
		}
	}
	return out
}

// Package validation checks the pipeline's input files before anything is
// parsed, so that a misnamed sheet or an empty table is reported together
// with every other problem instead of one at a time.
package validation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"gcbmprep/internal/config"
)

// Kind is the file format an input is expected to have.
type Kind int

const (
	KindCSV Kind = iota
	KindExcel
)

func (k Kind) String() string {
	if k == KindExcel {
		return "excel"
	}
	return "csv"
}

// Input describes one file the pipeline reads.
type Input struct {
	Name     string
	Path     string
	Kind     Kind
	Sheet    string // Excel only
	Optional bool
}

// Problem is one failed check.
type Problem struct {
	Input   string
	Path    string
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s (%s): %s", p.Input, p.Path, p.Message)
}

// Error aggregates every problem found by Validate.
type Error struct {
	Problems []Problem
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return fmt.Sprintf("%d input problems: %s", len(e.Problems), strings.Join(msgs, "; "))
}

// Inputs lists the files a full run reads.
func Inputs(paths *config.Paths) []Input {
	return []Input{
		{Name: "stands", Path: paths.StandsFile, Kind: KindCSV},
		{Name: "yields1", Path: paths.Yields1File, Kind: KindCSV},
		{Name: "yields2", Path: paths.Yields2File, Kind: KindCSV},
		{Name: "yields3", Path: paths.Yields3File, Kind: KindCSV, Optional: true},
		{Name: "condition", Path: paths.ConditionFile, Kind: KindExcel, Sheet: config.ConditionSheet},
		{Name: "schedule", Path: paths.ScheduleFile, Kind: KindExcel, Sheet: config.ScheduleSheet},
	}
}

// FileValidator checks input files and output directories.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "validation")),
	}
}

// Validate checks every input and returns an *Error listing all problems,
// or nil. A missing optional input is not a problem.
func (v *FileValidator) Validate(inputs []Input) error {
	var problems []Problem
	for _, in := range inputs {
		if in.Optional && (in.Path == "" || !config.FileExists(in.Path)) {
			v.logger.Debug("Optional input not present", slog.String("input", in.Name))
			continue
		}
		if err := v.ValidateInput(in); err != nil {
			problems = append(problems, Problem{Input: in.Name, Path: in.Path, Message: err.Error()})
		}
	}
	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	v.logger.Info("Input files validated", slog.Int("inputs", len(inputs)))
	return nil
}

// ValidateInput runs the checks for a single input.
func (v *FileValidator) ValidateInput(in Input) error {
	if err := v.ValidateFile(in.Path); err != nil {
		return err
	}
	switch in.Kind {
	case KindExcel:
		return v.ValidateExcelFile(in.Path, in.Sheet)
	default:
		return v.ValidateCSVFile(in.Path)
	}
}

// ValidateFile checks that path exists, is a regular file and is readable.
func (v *FileValidator) ValidateFile(path string) error {
	if path == "" {
		return fmt.Errorf("no path configured")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return fmt.Errorf("file does not exist")
	}
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("is a directory, not a file")
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file is not readable: %w", err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateExcelFile checks the extension, rejects Office lock files and,
// when sheet is set, that the workbook has a sheet of that name compared
// case-insensitively.
func (v *FileValidator) ValidateExcelFile(path, sheet string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		return fmt.Errorf("not an Excel workbook (extension %q)", ext)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fmt.Errorf("is an Excel lock file")
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		return nil
	}
	sheets := f.GetSheetList()
	for _, s := range sheets {
		if strings.EqualFold(strings.TrimSpace(s), sheet) {
			return nil
		}
	}
	v.logger.Warn("Sheet not found",
		slog.String("file", path),
		slog.String("sheet", sheet),
		slog.Any("available", sheets))
	return fmt.Errorf("sheet %q not found (have %s)", sheet, strings.Join(sheets, ", "))
}

// ValidateCSVFile checks the extension and that the file has a header row.
func (v *FileValidator) ValidateCSVFile(path string) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" {
		return fmt.Errorf("not a CSV file (extension %q)", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file is not readable: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("no header row")
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < 2 {
		return fmt.Errorf("header has %d column", len(header))
	}
	return nil
}

// ValidateOutputDirectory ensures dir exists and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)
	return nil
}

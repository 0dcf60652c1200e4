package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/abhisek/wordmine/internal/store"
)

// ImportConfig describes where catalog rows live in a spreadsheet or CSV file.
type ImportConfig struct {
	FilePath     string
	LanguagePair string

	IDColumn          string // optional; ids are derived from the term when empty
	TermColumn        string
	TranslationColumn string
	DifficultyColumn  string

	SheetName string // Excel only
	StartRow  int    // 1-based; rows before it are headers
}

// DefaultImportConfig returns the default vocabulary layout:
// A=id, B=term, C=translation, D=difficulty, header on row 1.
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		IDColumn:          "A",
		TermColumn:        "B",
		TranslationColumn: "C",
		DifficultyColumn:  "D",
		SheetName:         "Sheet1",
		StartRow:          2,
	}
}

// OptionsConfig describes where segment option rows live.
type OptionsConfig struct {
	FilePath      string
	SegmentColumn string
	OptionColumn  string
	TextColumn    string
	SheetName     string
	StartRow      int
}

// DefaultOptionsConfig returns the default option layout:
// A=segment id, B=option id, C=text, header on row 1.
func DefaultOptionsConfig() OptionsConfig {
	return OptionsConfig{
		SegmentColumn: "A",
		OptionColumn:  "B",
		TextColumn:    "C",
		SheetName:     "Options",
		StartRow:      2,
	}
}

// ImportResult holds the result of an import operation.
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

// ImportVocabulary reads vocabulary rows from cfg.FilePath and upserts them.
// Row-level problems are collected in the result rather than aborting.
func ImportVocabulary(ctx context.Context, repo store.CatalogRepo, cfg ImportConfig) (*ImportResult, error) {
	if cfg.LanguagePair == "" {
		return nil, errors.New("language pair is required")
	}
	rows, err := readRows(cfg.FilePath, cfg.SheetName)
	if err != nil {
		return nil, err
	}

	termIdx, err := columnIndex(cfg.TermColumn)
	if err != nil {
		return nil, err
	}
	translationIdx, err := columnIndex(cfg.TranslationColumn)
	if err != nil {
		return nil, err
	}
	idIdx := optionalColumn(cfg.IDColumn)
	difficultyIdx := optionalColumn(cfg.DifficultyColumn)

	result := &ImportResult{}
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < cfg.StartRow {
			continue
		}
		result.TotalProcessed++

		term := cell(row, termIdx)
		translation := cell(row, translationIdx)
		if term == "" || translation == "" {
			result.Skipped++
			continue
		}

		item := store.VocabularyItem{
			ID:           cell(row, idIdx),
			LanguagePair: cfg.LanguagePair,
			Term:         term,
			Translation:  translation,
			Difficulty:   1,
		}
		if item.ID == "" {
			item.ID = DeriveID(cfg.LanguagePair, term)
		}
		if d := cell(row, difficultyIdx); d != "" {
			n, err := strconv.Atoi(d)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: invalid difficulty %q", rowNum, d))
				continue
			}
			item.Difficulty = n
		}

		created, err := repo.UpsertItem(ctx, item)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

// ImportOptions reads segment option rows from cfg.FilePath and upserts them.
func ImportOptions(ctx context.Context, repo store.CatalogRepo, cfg OptionsConfig) (*ImportResult, error) {
	rows, err := readRows(cfg.FilePath, cfg.SheetName)
	if err != nil {
		return nil, err
	}
	segIdx, err := columnIndex(cfg.SegmentColumn)
	if err != nil {
		return nil, err
	}
	optIdx, err := columnIndex(cfg.OptionColumn)
	if err != nil {
		return nil, err
	}
	textIdx, err := columnIndex(cfg.TextColumn)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < cfg.StartRow {
			continue
		}
		result.TotalProcessed++

		opt := store.SegmentOption{
			SegmentID: cell(row, segIdx),
			OptionID:  cell(row, optIdx),
			Text:      cell(row, textIdx),
		}
		if opt.SegmentID == "" || opt.OptionID == "" || opt.Text == "" {
			result.Skipped++
			continue
		}
		if err := repo.UpsertOption(ctx, opt); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		result.Created++
	}
	return result, nil
}

// DeriveID returns a stable id for a term within a language pair.
func DeriveID(languagePair, term string) string {
	key := languagePair + ":" + strings.ToLower(strings.TrimSpace(term))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// readRows loads every row of a CSV file or an Excel sheet, chosen by extension.
func readRows(path, sheet string) ([][]string, error) {
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return readCSV(path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// columnIndex converts a column letter ("A", "AB") to a zero-based index.
func columnIndex(col string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(col))
	if err != nil {
		return 0, fmt.Errorf("invalid column %q: %w", col, err)
	}
	return n - 1, nil
}

func optionalColumn(col string) int {
	if col == "" {
		return -1
	}
	idx, err := columnIndex(col)
	if err != nil {
		return -1
	}
	return idx
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Package report exports mapping results for human review.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"field-mapper/internal/common"
	"field-mapper/internal/plan"
)

const (
	fieldsSheet     = "Fields"
	validationSheet = "Validation"
)

var fieldHeaders = []string{
	"field", "section", "required", "value", "status", "strategy",
	"confidence", "source_key", "inputs", "suggestions", "error",
}

var validationHeaders = []string{"field", "severity", "message"}

// WriteXLSX writes res as a workbook with a field sheet and a validation
// sheet.
func WriteXLSX(res *plan.Result, w io.Writer) error {
	f, err := build(res)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	return nil
}

// SaveXLSX writes res to path, creating parent directories.
func SaveXLSX(res *plan.Result, path string) error {
	f, err := build(res)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return f.SaveAs(path)
}

func build(res *plan.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), fieldsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	writeHeader(f, fieldsSheet, fieldHeaders)

	for i, fr := range res.Fields {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(fieldsSheet, cell, value)
		}

		set(1, fr.Field)
		set(2, fr.Section)
		set(3, fr.Required)
		set(4, fr.Value)
		set(5, fr.Status.String())
		set(6, fr.Strategy)
		set(7, fr.Confidence)
		set(8, fr.SourceKey)
		set(9, strings.Join(fr.Inputs, ", "))
		set(10, strings.Join(fr.Suggestions, "; "))
		set(11, fr.Error)
	}

	if _, err := f.NewSheet(validationSheet); err != nil {
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	writeHeader(f, validationSheet, validationHeaders)

	r := 2
	for _, sev := range []struct {
		name     string
		messages map[string][]string
	}{
		{"error", res.Validation.Errors},
		{"warning", res.Validation.Warnings},
	} {
		for _, field := range common.SortedKeys(sev.messages) {
			for _, msg := range sev.messages[field] {
				_ = f.SetSheetRow(validationSheet, fmt.Sprintf("A%d", r), &[]any{field, sev.name, msg})
				r++
			}
		}
	}

	return f, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

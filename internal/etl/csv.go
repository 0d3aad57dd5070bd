package etl

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/BartekS5/cleanetl/pkg/logger"
	"github.com/BartekS5/cleanetl/pkg/models"
	"github.com/BartekS5/cleanetl/pkg/utils"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVExtractor reads a comma-separated file with a header row into a Dataset.
type CSVExtractor struct {
	FilePath string
	Source   SourceOpener
}

func NewCSVExtractor(filePath string, source SourceOpener) *CSVExtractor {
	if source == nil {
		source = &Sources{}
	}
	return &CSVExtractor{FilePath: filePath, Source: source}
}

func (c *CSVExtractor) Extract(ctx context.Context) (*models.Dataset, error) {
	rc, err := c.Source.Open(ctx, c.FilePath)
	if err != nil {
		if errors.Is(err, ErrSourceNotFound) {
			return nil, extractErr(ErrSourceNotFound, err)
		}
		return nil, extractErr(ErrSourceParse, err)
	}
	defer rc.Close()

	ds, err := ReadCSV(rc)
	if err != nil {
		return nil, extractErr(ErrSourceParse, fmt.Errorf("%s: %w", c.FilePath, err))
	}

	logger.Infof("Extracted %d rows from %s", ds.Len(), c.FilePath)
	return ds, nil
}

// ReadCSV parses r into a Dataset. A UTF-8 or UTF-16 byte order mark is
// honoured; anything else must be valid UTF-8. Column kinds are inferred from
// the whole column.
func ReadCSV(r io.Reader) (*models.Dataset, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(transform.Nop))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("no columns to parse from file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if err := checkUTF8(header, 1); err != nil {
		return nil, err
	}
	names := normalizeHeader(header)

	raw := make([][]string, len(names))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed record: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if err := checkUTF8(record, line); err != nil {
			return nil, err
		}
		for i, cell := range record {
			raw[i] = append(raw[i], cell)
		}
	}

	cols := make([]*models.Column, len(names))
	for i, name := range names {
		kind := utils.InferKind(raw[i])
		values := make([]any, len(raw[i]))
		for j, cell := range raw[i] {
			v, err := utils.ConvertCell(cell, kind)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			values[j] = v
		}
		cols[i] = &models.Column{Name: name, Kind: kind, Values: values}
	}
	return models.NewDatasetFromColumns(cols)
}

func checkUTF8(fields []string, line int) error {
	for _, f := range fields {
		if !utf8.ValidString(f) {
			return fmt.Errorf("line %d: invalid UTF-8 encoding", line)
		}
	}
	return nil
}

// normalizeHeader names blank headers "Unnamed: <i>" and suffixes repeated
// names with ".1", ".2", ...
func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; seen[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

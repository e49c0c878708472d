package leaderboardservice

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/esolangs/codeguessing/app/shared/operation"
	"github.com/esolangs/codeguessing/app/shared/results"
)

var exportHeader = []string{"rank", "player", "rounds", "wins", "plus", "bonus", "minus", "total", "likes"}

func exportRow(e Entry) []string {
	return []string{
		strconv.Itoa(e.Rank),
		e.Name,
		strconv.Itoa(e.Rounds),
		strconv.Itoa(e.Wins),
		strconv.Itoa(e.Plus),
		strconv.Itoa(e.Bonus),
		strconv.Itoa(e.Minus),
		strconv.Itoa(e.Total),
		strconv.Itoa(e.Likes),
	}
}

// ExportCSV writes the window's standings as CSV.
func (s *Service) ExportCSV(ctx context.Context, from, to int64) (results.OperationResult[[]byte, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "ExportCSV", fmt.Sprintf("%d-%d", from, to),
		func(ctx context.Context) (results.OperationResult[[]byte, error], error) {
			entries, err := s.standings(ctx, from, to)
			if err != nil {
				return results.OperationResult[[]byte, error]{}, err
			}

			var buf bytes.Buffer
			w := csv.NewWriter(&buf)
			if err := w.Write(exportHeader); err != nil {
				return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to write csv: %w", err)
			}
			for _, e := range entries {
				if err := w.Write(exportRow(e)); err != nil {
					return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to write csv: %w", err)
				}
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to flush csv: %w", err)
			}
			return results.SuccessResult[[]byte, error](buf.Bytes()), nil
		})
}

// ExportXLSX writes the window's standings as a single-sheet workbook.
func (s *Service) ExportXLSX(ctx context.Context, from, to int64) (results.OperationResult[[]byte, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "ExportXLSX", fmt.Sprintf("%d-%d", from, to),
		func(ctx context.Context) (results.OperationResult[[]byte, error], error) {
			entries, err := s.standings(ctx, from, to)
			if err != nil {
				return results.OperationResult[[]byte, error]{}, err
			}

			f := excelize.NewFile()
			defer f.Close()
			const sheet = "Standings"
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to name sheet: %w", err)
			}
			if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
				return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to write header: %w", err)
			}
			for i, e := range entries {
				cell, err := excelize.CoordinatesToCellName(1, i+2)
				if err != nil {
					return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to compute cell: %w", err)
				}
				row := []any{e.Rank, e.Name, e.Rounds, e.Wins, e.Plus, e.Bonus, e.Minus, e.Total, e.Likes}
				if err := f.SetSheetRow(sheet, cell, &row); err != nil {
					return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to write row: %w", err)
				}
			}

			buf, err := f.WriteToBuffer()
			if err != nil {
				return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to serialize workbook: %w", err)
			}
			return results.SuccessResult[[]byte, error](buf.Bytes()), nil
		})
}

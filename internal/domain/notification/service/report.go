package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nqn-field/notifica/internal/domain/notification/repository"
)

// reportHeader is the column order shared by the CSV and XLSX exports.
var reportHeader = []string{
	"Numero Orden", "Suministro", "Cliente", "Nombre", "Direccion", "Zona",
	"Estado", "Resultado", "Completada", "Token",
}

// ExportCSV renders the notifications matching the filter as a CSV report.
func (s *Service) ExportCSV(ctx context.Context, f repository.Filter) ([]byte, error) {
	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(reportHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, n := range items {
		if err := w.Write(reportRow(n)); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportXLSX renders the notifications matching the filter as an Excel
// workbook for the office staff.
func (s *Service) ExportXLSX(ctx context.Context, f repository.Filter) ([]byte, error) {
	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Notificaciones"
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	for col, title := range reportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheet, cell, title); err != nil {
			return nil, fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for i, n := range items {
		for col, value := range reportRow(n) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func reportRow(n *repository.Notification) []string {
	completed := ""
	if n.CompletedAt != nil {
		completed = n.CompletedAt.Format(time.RFC3339)
	}
	token := ""
	if n.VerificationToken != nil {
		token = *n.VerificationToken
	}

	return []string{
		n.OrderNumber,
		n.SupplyNumber,
		n.ClientNumber,
		n.CitizenName,
		n.Address,
		n.Zone,
		string(n.Status),
		n.Result,
		completed,
		token,
	}
}

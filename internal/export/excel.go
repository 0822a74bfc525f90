// Package export renders confirmed reservations as an Excel workbook
// for download from the dashboard.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"callbook/internal/models"
)

var columns = []string{
	"ID", "Guest", "Phone", "Date", "Time", "Guests", "Special requests", "Status", "Created",
}

// WriteReservations writes an XLSX with one row per reservation to w.
func WriteReservations(w io.Writer, reservations []models.Reservation) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Reservations"
	f.SetSheetName("Sheet1", sheet)

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		start, _ := excelize.CoordinatesToCellName(1, 1)
		end, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = f.SetCellStyle(sheet, start, end, style)
	}

	for rowIdx, r := range reservations {
		values := []interface{}{
			r.ID,
			r.GuestName,
			r.GuestPhone,
			r.Date,
			r.Time,
			r.Guests,
			r.SpecialRequests,
			r.Status,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for colIdx, v := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

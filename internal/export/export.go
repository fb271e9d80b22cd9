// Package export renders product schedules to Excel workbooks for
// providers who want an offline view of their bookings.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"rentmarket/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Schedule"

// Store lists the catalog and the reservations overlapping a window.
type Store interface {
	ListProducts(ctx context.Context) ([]*models.Product, error)
	ListReservationsByProduct(ctx context.Context, productID string, start, end time.Time) ([]*models.Reservation, error)
}

type Exporter struct {
	store  Store
	dir    string
	logger *zerolog.Logger
}

func NewExporter(store Store, dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{store: store, dir: dir, logger: logger}
}

// ScheduleWorkbook writes one workbook covering [start, end) with a row
// per reservation, grouped by product. Returns the file path.
func (e *Exporter) ScheduleWorkbook(ctx context.Context, start, end time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f, err := e.buildWorkbook(ctx, start, end)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("schedule_%s_to_%s.xlsx",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("schedule workbook created")
	return filePath, nil
}

// WriteSchedule streams the workbook to w instead of saving a file.
// Used by the HTTP download endpoint.
func (e *Exporter) WriteSchedule(ctx context.Context, w io.Writer, start, end time.Time) error {
	f, err := e.buildWorkbook(ctx, start, end)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func (e *Exporter) buildWorkbook(ctx context.Context, start, end time.Time) (*excelize.File, error) {
	products, err := e.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Schedule %s - %s",
		start.Format("02.01.2006"), end.Format("02.01.2006")))
	_ = f.MergeCell(sheetName, "A1", "H1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headers := []string{"Product", "Reservation", "Requester", "Start", "End", "Quantity", "Status", "Total Due"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheetName, "A2", "H2", headerStyle)

	row := 3
	for _, p := range products {
		reservations, err := e.store.ListReservationsByProduct(ctx, p.ID, start, end)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("list reservations for %s: %w", p.ID, err)
		}
		for _, res := range reservations {
			values := []any{
				p.Name,
				res.ID,
				res.RequesterID,
				res.Start.Format("2006-01-02"),
				res.End.Format("2006-01-02"),
				res.Quantity,
				res.Status,
				res.TotalDue(),
			}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				_ = f.SetCellValue(sheetName, cell, v)
			}
			row++
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 25)
	_ = f.SetColWidth(sheetName, "C", "H", 14)

	return f, nil
}

package orchestrators

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// ReportUploader forwards a report file.
type ReportUploader interface {
	UploadReport(ctx context.Context, bookingID int64, filename string, file io.Reader) error
}

var (
	ErrNoFile    = errors.New("Please select a file first.")
	ErrNoBooking = errors.New("Select a booking.")
)

// UploadReportInput carries input for the upload orchestrator.
type UploadReportInput struct {
	BookingID int64
	Filename  string
	File      io.Reader
}

// UploadReportDeps holds dependencies for UploadReport.
type UploadReportDeps struct {
	Reports ReportUploader
}

// ExecuteUploadReport forwards a diagnostic report for a booking.
// PRE: File is open for reading
// POST: returns ErrNoFile without calling the API when no file was chosen
func ExecuteUploadReport(ctx context.Context, input UploadReportInput, deps UploadReportDeps) error {
	if input.BookingID == 0 {
		return ErrNoBooking
	}
	name := strings.TrimSpace(input.Filename)
	if input.File == nil || name == "" {
		return ErrNoFile
	}
	if err := deps.Reports.UploadReport(ctx, input.BookingID, name, input.File); err != nil {
		return err
	}
	slog.Info("report_event", "event", "uploaded", "booking_id", input.BookingID, "filename", name)
	return nil
}

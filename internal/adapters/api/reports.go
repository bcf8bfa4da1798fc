package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
)

// UploadReport sends a diagnostic report file for a booking as multipart form data.
// PRE: filename is non-empty
func (c *Client) UploadReport(ctx context.Context, bookingID int64, filename string, file io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("bookingId", strconv.FormatInt(bookingID, 10)); err != nil {
		return fmt.Errorf("failed to write form: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to write form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy report: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to write form: %w", err)
	}

	resp, err := c.do(ctx, "UploadReport", http.MethodPost, "/reports/upload", &buf,
		map[string]string{"Content-Type": mw.FormDataContentType()})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// DownloadReport fetches the diagnostic report of a booking.
func (c *Client) DownloadReport(ctx context.Context, bookingID int64) (Download, error) {
	return c.download(ctx, "DownloadReport", fmt.Sprintf("/reports/download/%d", bookingID), fmt.Sprintf("report_%d.pdf", bookingID))
}

package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"

	"testinsure/internal/domain/booking"
)

// maxDownload bounds the size of a receipt or report.
const maxDownload = 32 << 20

// Download is a binary document returned by the API.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

// MyBookings returns the caller's bookings.
func (c *Client) MyBookings(ctx context.Context) ([]booking.Booking, error) {
	var out []booking.Booking
	err := c.doJSON(ctx, "MyBookings", http.MethodGet, "/bookings/my", nil, &out)
	return out, err
}

// AllBookings returns every booking.
func (c *Client) AllBookings(ctx context.Context) ([]booking.Booking, error) {
	var out []booking.Booking
	err := c.doJSON(ctx, "AllBookings", http.MethodGet, "/bookings/all", nil, &out)
	return out, err
}

// CreateBooking books a slot.
func (c *Client) CreateBooking(ctx context.Context, req booking.Request) (booking.Booking, error) {
	var out booking.Booking
	err := c.doJSON(ctx, "CreateBooking", http.MethodPost, "/bookings", req, &out)
	return out, err
}

// CancelBooking cancels one of the caller's bookings.
func (c *Client) CancelBooking(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "CancelBooking", http.MethodPut, fmt.Sprintf("/bookings/%d/cancel", id), nil, nil)
}

// PayBooking records a cash payment for a booking.
func (c *Client) PayBooking(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "PayBooking", http.MethodPut, fmt.Sprintf("/bookings/%d/pay", id), nil, nil)
}

// DownloadBill fetches the receipt of a booking.
func (c *Client) DownloadBill(ctx context.Context, id int64) (Download, error) {
	return c.download(ctx, "DownloadBill", fmt.Sprintf("/bookings/%d/bill", id), fmt.Sprintf("bill_%d.pdf", id))
}

// download fetches a binary body, naming it from Content-Disposition or fallback.
func (c *Client) download(ctx context.Context, op, path, fallback string) (Download, error) {
	resp, err := c.do(ctx, op, http.MethodGet, path, nil, map[string]string{"Accept": "application/pdf, */*"})
	if err != nil {
		return Download{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload))
	if err != nil {
		return Download{}, fmt.Errorf("failed to read download: %w", err)
	}
	d := Download{
		Filename:    fallback,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	if d.ContentType == "" {
		d.ContentType = "application/octet-stream"
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		d.Filename = params["filename"]
	}
	return d, nil
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"testinsure/internal/domain/labtest"
	"testinsure/internal/domain/slot"
)

// ListTests returns every diagnostic test.
func (c *Client) ListTests(ctx context.Context) ([]labtest.LabTest, error) {
	var out []labtest.LabTest
	err := c.doJSON(ctx, "ListTests", http.MethodGet, "/tests", nil, &out)
	return out, err
}

// CreateTest adds a diagnostic test.
func (c *Client) CreateTest(ctx context.Context, d labtest.Draft) (labtest.LabTest, error) {
	var out labtest.LabTest
	err := c.doJSON(ctx, "CreateTest", http.MethodPost, "/tests", d, &out)
	return out, err
}

// DeleteTest removes a diagnostic test.
func (c *Client) DeleteTest(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "DeleteTest", http.MethodDelete, fmt.Sprintf("/tests/%d", id), nil, nil)
}

// ListSlots returns the time slots of one test.
func (c *Client) ListSlots(ctx context.Context, testID int64) ([]slot.Slot, error) {
	var out []slot.Slot
	err := c.doJSON(ctx, "ListSlots", http.MethodGet, fmt.Sprintf("/tests/%d/slots", testID), nil, &out)
	return out, err
}

// CreateSlot adds a time slot to a test.
func (c *Client) CreateSlot(ctx context.Context, testID int64, d slot.Draft) (slot.Slot, error) {
	var out slot.Slot
	q := url.Values{"testId": {strconv.FormatInt(testID, 10)}}
	err := c.doJSON(ctx, "CreateSlot", http.MethodPost, "/slots?"+q.Encode(), d, &out)
	return out, err
}

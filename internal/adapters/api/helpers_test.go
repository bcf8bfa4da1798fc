package api

import (
	"io"
	"strings"

	"testinsure/internal/domain/slot"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func slotDraft() slot.Draft {
	return slot.Draft{Date: "2026-05-01", StartTime: "09:00", EndTime: "09:30", Capacity: slot.DefaultCapacity}
}

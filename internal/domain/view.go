package domain

import "errors"

// Page identifies the page the user is looking at
type Page string

const (
	PageCurrent  Page = "current"
	PageNew      Page = "new"
	PageHistory  Page = "history"
	PageSnapshot Page = "snapshot"
)

// View is the UI context the display total is computed for.
// It is one of ViewingCurrent, EditingCurrent, ViewingSnapshot,
// EditingSnapshot, EditingNew or ViewingHistory.
type View interface {
	isView()
}

// ViewingCurrent shows the latest saved snapshot
type ViewingCurrent struct{}

// EditingCurrent edits the latest snapshot through an unsaved buffer
type EditingCurrent struct {
	Buffer []Section
}

// ViewingSnapshot shows the snapshot saved for Date
type ViewingSnapshot struct {
	Date string
}

// EditingSnapshot edits the snapshot saved for Date through an unsaved buffer
type EditingSnapshot struct {
	Date   string
	Buffer []Section
}

// EditingNew edits the live sections before they are snapshotted
type EditingNew struct{}

// ViewingHistory lists every snapshot; the header keeps showing the live total
type ViewingHistory struct{}

func (ViewingCurrent) isView()  {}
func (EditingCurrent) isView()  {}
func (ViewingSnapshot) isView() {}
func (EditingSnapshot) isView() {}
func (EditingNew) isView()      {}
func (ViewingHistory) isView()  {}

// NewView builds the view for a page. A non-nil buffer means the page is
// being edited.
func NewView(page Page, date string, buffer []Section) (View, error) {
	switch page {
	case PageCurrent, "":
		if buffer != nil {
			return EditingCurrent{Buffer: buffer}, nil
		}
		return ViewingCurrent{}, nil
	case PageSnapshot:
		d, err := ParseDate(date)
		if err != nil {
			return nil, err
		}
		if buffer != nil {
			return EditingSnapshot{Date: d, Buffer: buffer}, nil
		}
		return ViewingSnapshot{Date: d}, nil
	case PageNew:
		return EditingNew{}, nil
	case PageHistory:
		return ViewingHistory{}, nil
	default:
		return nil, errors.New("invalid page: " + string(page))
	}
}

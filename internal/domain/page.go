package domain

import (
	"fmt"
	"time"
)

// PageRequest historical range query split into pages of calendar days.
type PageRequest struct {
	Start time.Time
	End   time.Time
	Page  int
	Size  int
}

// DateWindow inclusive range of calendar days.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// secondsPerDay holds for UTC midnights, which have no leap seconds or DST shifts.
const secondsPerDay = 24 * 60 * 60

// Days returns the number of calendar days in the window. Unix seconds are used
// because time.Duration saturates after about 292 years.
func (w DateWindow) Days() int {
	return int((DateOf(w.End).Unix()-DateOf(w.Start).Unix())/secondsPerDay) + 1
}

// String returns the provider range notation start..end.
func (w DateWindow) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format(DateLayout), w.End.Format(DateLayout))
}

// Validate checks start <= end, page >= 1 and size >= 1.
func (r PageRequest) Validate() error {
	if r.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidArgument, r.Page)
	}
	if r.Size < 1 {
		return fmt.Errorf("%w: size must be >= 1, got %d", ErrInvalidArgument, r.Size)
	}
	if DateOf(r.Start).After(DateOf(r.End)) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidArgument,
			FormatDate(r.Start), FormatDate(r.End))
	}
	return nil
}

// Window resolves the page into a range of days. The range [Start, End] is
// enumerated day by day and the page takes positions
// [(page-1)*size, (page-1)*size+size). ok is false when the page lies past the range.
func (r PageRequest) Window() (w DateWindow, ok bool, err error) {
	if err := r.Validate(); err != nil {
		return DateWindow{}, false, err
	}

	full := DateWindow{Start: DateOf(r.Start), End: DateOf(r.End)}
	days := full.Days()

	// compare page index against the number of pages first so (page-1)*size cannot overflow
	if r.Page-1 > (days-1)/r.Size {
		return DateWindow{}, false, nil
	}

	offset := (r.Page - 1) * r.Size
	last := offset + r.Size - 1
	if last > days-1 {
		last = days - 1
	}

	return DateWindow{
		Start: full.Start.AddDate(0, 0, offset),
		End:   full.Start.AddDate(0, 0, last),
	}, true, nil
}

// StripFilters describe admin-provided filters to narrow the strip list.
package dto

import "time"

type StripFilters struct {
	Layout     string
	Template   string
	DateAfter  time.Time
	DateBefore time.Time
	Limit      int
	Offset     int
}

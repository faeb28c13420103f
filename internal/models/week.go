package models

// WeekRange is an inclusive week filter. Nil bounds are open.
type WeekRange struct {
	Start *int `json:"week_start"`
	End   *int `json:"week_end"`
}

// Contains reports whether week falls within the range.
func (r WeekRange) Contains(week int) bool {
	if r.Start != nil && week < *r.Start {
		return false
	}
	if r.End != nil && week > *r.End {
		return false
	}
	return true
}

// IsZero reports whether no bound is set.
func (r WeekRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

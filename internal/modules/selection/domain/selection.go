package domain

// Selection is a point-in-time copy of the offices chosen for monitoring.
type Selection struct {
	Country string   `json:"country"`
	Offices []string `json:"offices"`
}

// Empty reports whether no office is selected.
func (s Selection) Empty() bool {
	return len(s.Offices) == 0
}

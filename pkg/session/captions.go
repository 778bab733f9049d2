package session

// Captions holds the most recently submitted top and bottom text
type Captions struct {
	Top    string `json:"top"`
	Bottom string `json:"bottom"`
}

// Empty reports whether there is nothing to draw or read
func (c Captions) Empty() bool {
	return c.Top == "" && c.Bottom == ""
}

// Lines returns the non-empty captions in reading order
func (c Captions) Lines() []string {
	lines := make([]string, 0, 2)
	if c.Top != "" {
		lines = append(lines, c.Top)
	}
	if c.Bottom != "" {
		lines = append(lines, c.Bottom)
	}
	return lines
}

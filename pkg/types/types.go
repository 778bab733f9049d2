package types

// Suggestion is a caption pair proposed by a vision model
type Suggestion struct {
	Top    string `json:"top"`
	Bottom string `json:"bottom"`
	// Fallback is set when the model reply could not be used
	Fallback bool   `json:"fallback,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Empty reports whether neither caption was suggested
func (s Suggestion) Empty() bool {
	return s.Top == "" && s.Bottom == ""
}

// PrepareOptions controls how an image is shrunk before it is sent to a model
type PrepareOptions struct {
	Format  string
	MaxDim  int
	Quality int
}

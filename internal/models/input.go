package models

// InputType discriminates the two normalized capture variants
type InputType string

const (
	// InputText is typed (or dictated) text
	InputText InputType = "text"
	// InputImage is an uploaded file or a captured camera frame
	InputImage InputType = "image"
)

// Input is the single normalized payload every capture source produces.
// Exactly one of Value or Blob is populated, according to Type.
type Input struct {
	Type     InputType
	Value    string
	Blob     []byte
	MimeType string
	Filename string
}

// IsImage reports whether the input carries an image blob
func (in Input) IsImage() bool {
	return in.Type == InputImage
}

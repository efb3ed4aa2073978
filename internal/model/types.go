package model

// Metadata describes the classifier's input and output tensors.
type Metadata struct {
	InputName   string
	OutputName  string
	InputShape  []int64
	OutputShape []int64
	ImageSize   int
	Layout      string
}

// NewMetadata derives tensor shapes for a single-image batch of a binary
// classifier with one sigmoid output.
func NewMetadata(inputName, outputName string, imageSize int, layout string) Metadata {
	size := int64(imageSize)
	inputShape := []int64{1, size, size, 3}
	if layout == "nchw" {
		inputShape = []int64{1, 3, size, size}
	}
	return Metadata{
		InputName:   inputName,
		OutputName:  outputName,
		InputShape:  inputShape,
		OutputShape: []int64{1, 1},
		ImageSize:   imageSize,
		Layout:      layout,
	}
}

// InputSize is the number of float32 values the input tensor holds.
func (m Metadata) InputSize() int {
	n := 1
	for _, dim := range m.InputShape {
		n *= int(dim)
	}
	return n
}

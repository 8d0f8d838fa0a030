package domain

// KeyDescriptor is serialized as JSON into keyboard input frames.
type KeyDescriptor struct {
	Key    string `json:"key"`
	Code   string `json:"code"`
	Repeat bool   `json:"repeat"`
	Alt    bool   `json:"altKey"`
	Ctrl   bool   `json:"ctrlKey"`
	Shift  bool   `json:"shiftKey"`
	Meta   bool   `json:"metaKey"`
}

// MouseButton follows the DOM MouseEvent.button numbering.
type MouseButton uint8

const (
	ButtonPrimary   MouseButton = 0
	ButtonAuxiliary MouseButton = 1
	ButtonSecondary MouseButton = 2
	ButtonBack      MouseButton = 3
	ButtonForward   MouseButton = 4
)

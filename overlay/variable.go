package overlay

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Box is the geometry and identity shared by every variable. Coordinates
// are points with y measured from the top of the page.
type Box struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Page  int     `json:"page"`
	Field string  `json:"field"`
	Value string  `json:"value"`
}

type HAlign string

const (
	AlignLeft   HAlign = "left"
	AlignCenter HAlign = "center"
	AlignRight  HAlign = "right"
)

func (a *HAlign) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch v := HAlign(strings.ToLower(s)); v {
	case AlignLeft, AlignCenter, AlignRight:
		*a = v
		return nil
	}
	return fmt.Errorf("invalid horizontal alignment %q", s)
}

type VAlign string

const (
	AlignTop    VAlign = "top"
	AlignMiddle VAlign = "middle"
	AlignBottom VAlign = "bottom"
)

func (a *VAlign) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch v := VAlign(strings.ToLower(s)); v {
	case AlignTop, AlignMiddle, AlignBottom:
		*a = v
		return nil
	}
	return fmt.Errorf("invalid vertical alignment %q", s)
}

// Variable is one overlay item: *TextVariable, *SignatureVariable or
// *ImageVariable.
type Variable interface {
	Geometry() Box
	Kind() string
}

type TextVariable struct {
	Box
	FontSize   *float64 `json:"fontSize,omitempty"`
	AlignH     *HAlign  `json:"alignH,omitempty"`
	AlignV     *VAlign  `json:"alignV,omitempty"`
	Color      *Color   `json:"color,omitempty"`
	Wrap       *bool    `json:"wrap,omitempty"`
	FontFamily string   `json:"fontFamily,omitempty"`
	FontWeight string   `json:"fontWeight,omitempty"`
}

func (v *TextVariable) Geometry() Box { return v.Box }
func (v *TextVariable) Kind() string  { return "text" }

// SignatureVariable is drawn in the cursive face with the fit policy.
type SignatureVariable struct {
	Box
	FontSize *float64 `json:"fontSize,omitempty"`
	AlignH   *HAlign  `json:"alignH,omitempty"`
	AlignV   *VAlign  `json:"alignV,omitempty"`
	Color    *Color   `json:"color,omitempty"`
}

func (v *SignatureVariable) Geometry() Box { return v.Box }
func (v *SignatureVariable) Kind() string  { return "signature" }

// ImageVariable places the image found at Value (a URL) into the box.
type ImageVariable struct {
	Box
}

func (v *ImageVariable) Geometry() Box { return v.Box }
func (v *ImageVariable) Kind() string  { return "image" }

// Variables decodes and encodes a JSON array of variables using the "type"
// discriminator.
type Variables []Variable

func (vs *Variables) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(Variables, 0, len(items))
	for i, item := range items {
		v, err := decodeVariable(item)
		if err != nil {
			return fmt.Errorf("variable %d: %w", i, err)
		}
		out = append(out, v)
	}
	*vs = out
	return nil
}

func decodeVariable(data []byte) (Variable, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	var v Variable
	switch head.Type {
	case "text":
		v = &TextVariable{}
	case "signature":
		v = &SignatureVariable{}
	case "image":
		v = &ImageVariable{}
	default:
		return nil, fmt.Errorf("unknown variable type %q", head.Type)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (vs Variables) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(vs))
	for _, v := range vs {
		body, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		// splice the discriminator in front of the variable's own fields
		typ, _ := json.Marshal(v.Kind())
		item := append([]byte(`{"type":`), typ...)
		if len(body) > 2 {
			item = append(item, ',')
			item = append(item, body[1:]...)
		} else {
			item = append(item, '}')
		}
		items = append(items, item)
	}
	return json.Marshal(items)
}

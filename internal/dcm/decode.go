// Package dcm adapts github.com/suyashkumar/dicom to the attribute store
// used by the dicomdir package.
package dcm

import (
	"fmt"
	"io"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"ikh/dicomdir/internal/dicomdir"
)

// Decode parses a DICOM file, skipping pixel data, and returns its elements
// as a dicomdir.Dataset.
func Decode(r io.Reader) (dicomdir.AttributeStore, error) {
	ds, err := dicom.ParseUntilEOF(r, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("parsing dicom: %w", err)
	}
	return Convert(ds.Elements), nil
}

// Convert copies elements into a Dataset. Text values keep their backslash
// delimiters and sequences are converted recursively.
func Convert(elements []*dicom.Element) dicomdir.Dataset {
	out := make(dicomdir.Dataset, len(elements))
	for _, el := range elements {
		if el == nil || el.Value == nil {
			continue
		}
		if v, ok := convertValue(el.Value); ok {
			out[tagOf(el.Tag)] = v
		}
	}
	return out
}

func convertValue(v dicom.Value) (any, bool) {
	switch val := v.GetValue().(type) {
	case []string:
		parts := make([]string, len(val))
		for i, s := range val {
			parts[i] = strings.TrimRight(s, " \x00")
		}
		return strings.Join(parts, `\`), true
	case []int:
		return joinValues(val), true
	case []float64:
		return joinValues(val), true
	case []*dicom.SequenceItemValue:
		items := make([]dicomdir.Dataset, 0, len(val))
		for _, item := range val {
			elements, _ := item.GetValue().([]*dicom.Element)
			items = append(items, Convert(elements))
		}
		return items, true
	}
	return nil, false
}

func joinValues[T int | float64](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, `\`)
}

func tagOf(t tag.Tag) dicomdir.Tag {
	return dicomdir.Tag(uint32(t.Group)<<16 | uint32(t.Element))
}

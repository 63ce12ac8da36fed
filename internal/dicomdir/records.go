// Package dicomdir decodes the directory records of a DICOMDIR, groups them
// into study, series and images, and reconciles the referenced files with
// the files of a dropped directory tree.
package dicomdir

import (
	"errors"
	"fmt"
	"strings"
)

// Tag identifies an attribute as group<<16 | element.
type Tag uint32

// Tags read from a DICOMDIR.
const (
	TagDirectoryRecordSequence Tag = 0x00041220
	TagReferencedFileID        Tag = 0x00041500
	TagDirectoryRecordType     Tag = 0x00041430
	TagSeriesNumber            Tag = 0x00200011
	TagModality                Tag = 0x00080060
	TagStudyDate               Tag = 0x00080020
)

func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", uint32(t)>>16, uint32(t)&0xFFFF)
}

// AttributeStore is a decoded dataset: tag to value, with sequences holding
// nested stores.
type AttributeStore interface {
	Value(tag Tag) (string, bool)
	Items(tag Tag) ([]AttributeStore, bool)
}

// Dataset is an in-memory AttributeStore. Values are string or []Dataset.
type Dataset map[Tag]any

func (d Dataset) Value(tag Tag) (string, bool) {
	v, ok := d[tag].(string)
	return v, ok
}

func (d Dataset) Items(tag Tag) ([]AttributeStore, bool) {
	seq, ok := d[tag].([]Dataset)
	if !ok {
		return nil, false
	}
	items := make([]AttributeStore, len(seq))
	for i, item := range seq {
		items[i] = item
	}
	return items, true
}

// RecordKind is the directory record type of a record.
type RecordKind int

const (
	RecordUnknown RecordKind = iota
	RecordStudy
	RecordSeries
	RecordImage
)

func recordKind(item AttributeStore) RecordKind {
	v, ok := item.Value(TagDirectoryRecordType)
	if !ok {
		return RecordUnknown
	}
	switch strings.TrimSpace(v) {
	case "STUDY":
		return RecordStudy
	case "SERIES":
		return RecordSeries
	case "IMAGE":
		return RecordImage
	}
	return RecordUnknown
}

// Handlers receive directory records by kind. Nil handlers are skipped.
type Handlers struct {
	OnStudy  func(record AttributeStore)
	OnSeries func(record AttributeStore)
	OnImage  func(record AttributeStore)
}

var errNoRecords = errors.New("missing directory record sequence")

// ReadRecords calls the handler matching each directory record of store,
// in stored order. Records of any other type are skipped. It fails with
// ErrCorrupt when the record sequence is absent or empty.
func ReadRecords(store AttributeStore, h Handlers) error {
	if store == nil {
		return newError(Corrupt, errNoRecords)
	}
	items, ok := store.Items(TagDirectoryRecordSequence)
	if !ok || len(items) == 0 {
		return newError(Corrupt, errNoRecords)
	}

	for _, item := range items {
		if item == nil {
			continue
		}
		var handle func(AttributeStore)
		switch recordKind(item) {
		case RecordStudy:
			handle = h.OnStudy
		case RecordSeries:
			handle = h.OnSeries
		case RecordImage:
			handle = h.OnImage
		}
		if handle != nil {
			handle(item)
		}
	}
	return nil
}

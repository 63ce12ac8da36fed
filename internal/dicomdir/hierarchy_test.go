package dicomdir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ikh/dicomdir/internal/models"
)

func study(date string) Dataset {
	ds := Dataset{TagDirectoryRecordType: "STUDY"}
	if date != "" {
		ds[TagStudyDate] = date
	}
	return ds
}

func series(number, modality string) Dataset {
	return Dataset{TagDirectoryRecordType: "SERIES", TagSeriesNumber: number, TagModality: modality}
}

func image(ref string) Dataset {
	return Dataset{TagDirectoryRecordType: "IMAGE", TagReferencedFileID: ref}
}

func directory(records ...Dataset) Dataset {
	return Dataset{TagDirectoryRecordSequence: records}
}

func refs(ids ...string) []models.ImageRef {
	out := make([]models.ImageRef, len(ids))
	for i, id := range ids {
		out[i] = models.ImageRef{ID: id}
	}
	return out
}

func TestReadRecordsDispatch(t *testing.T) {
	store := directory(
		study("20200101"),
		Dataset{TagDirectoryRecordType: "PATIENT"},
		series("1", "CT"),
		Dataset{},
		image("A"),
		Dataset{TagDirectoryRecordType: "IMAGE "},
	)

	var seen []string
	record := func(kind string) func(AttributeStore) {
		return func(AttributeStore) { seen = append(seen, kind) }
	}
	err := ReadRecords(store, Handlers{
		OnStudy:  record("study"),
		OnSeries: record("series"),
		OnImage:  record("image"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"study", "series", "image", "image"}, seen)

	require.NoError(t, ReadRecords(store, Handlers{}))
}

func TestReadRecordsCorrupt(t *testing.T) {
	tests := []struct {
		name  string
		store AttributeStore
	}{
		{"nil store", nil},
		{"missing sequence", Dataset{}},
		{"empty sequence", directory()},
		{"not a sequence", Dataset{TagDirectoryRecordSequence: "oops"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ReadRecords(tt.store, Handlers{})
			assert.ErrorIs(t, err, ErrCorrupt)

			_, err = BuildHierarchy(tt.store)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestSeriesGrouping(t *testing.T) {
	store := directory(
		series("1", "CT"),
		image("a"),
		image("b"),
		series("2", "MR"),
		image("c"),
	)

	h, err := BuildHierarchy(store)
	require.NoError(t, err)
	assert.Equal(t, []models.Series{
		{ID: "1", Modality: "CT", Images: refs("a", "b")},
		{ID: "2", Modality: "MR", Images: refs("c")},
	}, h.Series)
	assert.Equal(t, refs("a", "b", "c"), h.Images)
}

func TestImageBeforeSeries(t *testing.T) {
	store := directory(
		image("z"),
		series("1", "CT"),
		image("a"),
	)

	h, err := BuildHierarchy(store)
	require.NoError(t, err)
	assert.Equal(t, []models.Series{{ID: "1", Modality: "CT", Images: refs("a")}}, h.Series)
	assert.Equal(t, refs("z", "a"), h.Images)
}

func TestSeriesWithoutImages(t *testing.T) {
	h, err := BuildHierarchy(directory(study("20200101"), series(" 3 ", "US ")))
	require.NoError(t, err)
	assert.Equal(t, []models.Series{{ID: "3", Modality: "US", Images: []models.ImageRef{}}}, h.Series)
	assert.Empty(t, h.Images)
}

func TestStudyFirstUsableDateWins(t *testing.T) {
	store := directory(
		study(""),
		study("not a date"),
		study("20190315"),
		study("20240101"),
	)

	h, err := BuildHierarchy(store)
	require.NoError(t, err)
	require.NotNil(t, h.Study)
	assert.Equal(t, time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC), h.Study.Date)
}

func TestStudyAbsent(t *testing.T) {
	h, err := BuildHierarchy(directory(study(""), image("a")))
	require.NoError(t, err)
	assert.Nil(t, h.Study)
}

func TestBuildHierarchyIsRepeatable(t *testing.T) {
	store := directory(
		study("20200101"),
		image("orphan"),
		series("1", "CT"),
		image(`DIR\IM1`),
		series("2", "CT"),
		image(`DIR\IM2`),
	)

	first, err := BuildHierarchy(store)
	require.NoError(t, err)
	second, err := BuildHierarchy(store)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"20201231", time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"2020.12.31", time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"20201231 ", time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"20201332", time.Time{}, false},
		{"31/12/2020", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := parseDate(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "(0004,1220)", TagDirectoryRecordSequence.String())
	assert.Equal(t, "(0008,0020)", TagStudyDate.String())
}

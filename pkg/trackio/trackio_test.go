package trackio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleRecords = []da.Record{
	{TimeMillis: 1_700_000_020_000, Lon: 12.8021, Lat: 47.3012, Altitude: 512.5, Accuracy: 4},
	{TimeMillis: 1_700_000_010_000, Lon: 12.801, Lat: 47.3006, Altitude: 510, Accuracy: 6.25},
	{TimeMillis: 1_700_000_000_000, Lon: 12.8, Lat: 47.3, Altitude: 508, Accuracy: 12},
}

func TestHistoryRoundTrip(t *testing.T) {
	testCases := []struct {
		name     string
		compress bool
	}{
		{name: "plain text", compress: false},
		{name: "bzip2", compress: true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteHistory(&buf, sampleRecords, tt.compress))
			assert.Equal(t, tt.compress, bytes.HasPrefix(buf.Bytes(), []byte("BZh")))

			got, err := ReadHistory(&buf)
			require.NoError(t, err)
			assert.Equal(t, sampleRecords, got)
		})
	}
}

func TestWriteHistoryFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistory(&buf, sampleRecords[:1], false))
	assert.Equal(t, "1700000020000,12.8021,47.3012,512.5,4\n", buf.String())
}

func TestReadHistoryErrors(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		wantLine string
	}{
		{name: "missing field", input: "1700000000000,12.8,47.3,508\n", wantLine: "line 1"},
		{name: "bad time", input: "1700000000000,12.8,47.3,508,3\nnow,12.8,47.3,508,3\n", wantLine: "line 2"},
		{name: "bad float", input: "\n1700000000000,12.8,north,508,3\n", wantLine: "line 2"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHistory(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Equal(t, util.ErrLoad, util.ErrorCode(err))
			assert.Contains(t, err.Error(), tt.wantLine)
		})
	}
}

func TestReadHistoryEmpty(t *testing.T) {
	got, err := ReadHistory(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "locations.txt")

	got, err := LoadHistoryFile(path)
	require.NoError(t, err)
	assert.Empty(t, got, "missing file is an empty history")

	require.NoError(t, SaveHistoryFile(path, sampleRecords, true))
	got, err = LoadHistoryFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords, got)

	require.NoError(t, SaveHistoryFile(path, sampleRecords[:1], false))
	got, err = LoadHistoryFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords[:1], got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

const courseGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>loop</name>
    <trkseg>
      <trkpt lat="47.3" lon="12.8"><ele>500</ele><time>2023-11-14T22:13:20Z</time></trkpt>
      <trkpt lat="47.301" lon="12.801"><ele>505</ele><time>2023-11-14T22:13:30Z</time></trkpt>
      <trkpt lat="47.302" lon="12.802"><ele>510</ele><time>2023-11-14T22:13:40Z</time></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="48" lon="13"><time>2023-11-14T22:14:00Z</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

const routeGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <rte>
    <rtept lat="47.3" lon="12.8"></rtept>
    <rtept lat="47.31" lon="12.81"></rtept>
  </rte>
</gpx>`

func TestReadCourseGPX(t *testing.T) {
	points, err := ReadCourseGPX(strings.NewReader(courseGPX))
	require.NoError(t, err)
	require.Len(t, points, 3, "only the first segment")
	assert.Equal(t, da.NewTrackPoint(47.301, 12.801, 505), points[1])

	points, err = ReadCourseGPX(strings.NewReader(routeGPX))
	require.NoError(t, err)
	assert.Equal(t, []da.TrackPoint{da.NewTrackPoint(47.3, 12.8, 0), da.NewTrackPoint(47.31, 12.81, 0)}, points)

	_, err = ReadCourseGPX(strings.NewReader("<gpx"))
	assert.Equal(t, util.ErrLoad, util.ErrorCode(err))
}

func TestReadReplayGPX(t *testing.T) {
	fixes, err := ReadReplayGPX(strings.NewReader(courseGPX), 5)
	require.NoError(t, err)
	require.Len(t, fixes, 4)
	assert.Equal(t, int64(1_700_000_000_000), fixes[0].TimeMillis())
	assert.Equal(t, int64(1_700_000_010_000), fixes[1].TimeMillis())
	assert.Equal(t, 5.0, fixes[3].Accuracy())

	_, err = ReadReplayGPX(strings.NewReader(routeGPX), 5)
	assert.Equal(t, util.ErrLoad, util.ErrorCode(err))
}

func TestWriteHistoryGPX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistoryGPX(&buf, "morning ride", sampleRecords))

	fixes, err := ReadReplayGPX(&buf, 0)
	require.NoError(t, err)
	require.Len(t, fixes, len(sampleRecords))
	for i, f := range fixes {
		want := sampleRecords[len(sampleRecords)-1-i]
		assert.Equal(t, want.TimeMillis, f.TimeMillis())
		assert.InDelta(t, want.Lat, f.Lat(), 1e-9)
		assert.InDelta(t, want.Lon, f.Lon(), 1e-9)
	}
}

func TestPolyline(t *testing.T) {
	encoded := EncodeHistoryPolyline(sampleRecords)
	points, err := DecodeCoursePolyline(encoded)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.InDelta(t, 47.3, points[0].Lat, 1e-5)
	assert.InDelta(t, 12.8021, points[2].Lon, 1e-5)

	track, err := da.NewReferenceTrack(points)
	require.NoError(t, err)
	assert.Equal(t, encoded, EncodeTrackPolyline(track))

	testCases := []struct {
		name    string
		encoded string
	}{
		{name: "single point", encoded: EncodeHistoryPolyline(sampleRecords[:1])},
		{name: "truncated", encoded: encoded[:len(encoded)-1]},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCoursePolyline(tt.encoded)
			assert.Equal(t, util.ErrLoad, util.ErrorCode(err))
		})
	}
}

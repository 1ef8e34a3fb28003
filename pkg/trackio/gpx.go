package trackio

import (
	"io"
	"time"

	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/util"
	"github.com/tkrajina/gpxgo/gpx"
)

// ReadCourseGPX returns the points of the first track segment, or of the first route when the file has no tracks.
func ReadCourseGPX(r io.Reader) ([]da.TrackPoint, error) {
	gpxFile, err := gpx.Parse(r)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrLoad, "parse course gpx")
	}

	var points []gpx.GPXPoint
	for _, track := range gpxFile.Tracks {
		if len(track.Segments) > 0 && len(track.Segments[0].Points) > 0 {
			points = track.Segments[0].Points
			break
		}
	}
	if len(points) == 0 {
		for _, route := range gpxFile.Routes {
			if len(route.Points) > 0 {
				points = route.Points
				break
			}
		}
	}
	if len(points) < 2 {
		return nil, util.WrapErrorf(nil, util.ErrLoad, "course gpx does not contain a track with at least 2 points")
	}

	out := make([]da.TrackPoint, 0, len(points))
	for _, p := range points {
		out = append(out, da.NewTrackPoint(p.Latitude, p.Longitude, p.Elevation.Value()))
	}
	return out, nil
}

// ReadReplayGPX turns every timestamped track point of a recorded ride into a fix with the given accuracy.
func ReadReplayGPX(r io.Reader, accuracy float64) ([]da.Fix, error) {
	gpxFile, err := gpx.Parse(r)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrLoad, "parse ride gpx")
	}

	fixes := make([]da.Fix, 0)
	for _, track := range gpxFile.Tracks {
		for _, segment := range track.Segments {
			for i, p := range segment.Points {
				if p.Timestamp.IsZero() {
					return nil, util.WrapErrorf(nil, util.ErrLoad, "track %q point %d has no time", track.Name, i)
				}
				fixes = append(fixes, da.NewFix(p.Latitude, p.Longitude, p.Elevation.Value(), accuracy,
					p.Timestamp.UnixMilli()))
			}
		}
	}
	if len(fixes) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrLoad, "ride gpx has no track points")
	}
	return fixes, nil
}

// WriteHistoryGPX writes records (newest first, the ExportHistory order) as a single track in time order.
func WriteHistoryGPX(w io.Writer, name string, records []da.Record) error {
	segment := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(records))}
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		p := gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  r.Lat,
				Longitude: r.Lon,
				Elevation: *gpx.NewNullableFloat64(r.Altitude),
			},
			Timestamp: time.UnixMilli(r.TimeMillis).UTC(),
		}
		segment.Points = append(segment.Points, p)
	}

	g := &gpx.GPX{
		Creator: "bikestats",
		Tracks: []gpx.GPXTrack{{
			Name:     name,
			Segments: []gpx.GPXTrackSegment{segment},
		}},
	}
	xml, err := g.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return err
	}
	_, err = w.Write(xml)
	return err
}

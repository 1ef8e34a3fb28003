package controllers

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/trackio"
)

// putCourse
//
//	@Summary		store a reference course
//	@Description	body is a gpx file (application/gpx+xml) or {"polyline": "..."} (application/json)
//	@Tags			courses
//	@Accept			json,application/gpx+xml
//	@Produce		json
//	@Param			name	path		string	true	"course name"
//	@Success		200		{object}	courseResponse
//	@Failure		400		{object}	errorResponse
//	@Router			/courses/{name} [put]
func (api *statsAPI) putCourse(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var (
		points []da.TrackPoint
		err    error
	)
	switch mediaType(r) {
	case "application/gpx+xml", "application/xml", "text/xml":
		r.Body = http.MaxBytesReader(w, r.Body, MAX_BODY_BYTES)
		points, err = trackio.ReadCourseGPX(r.Body)
	case "application/json":
		var request coursePolylineRequest
		if err := api.readJSON(w, r, &request); err != nil {
			api.BadRequestResponse(w, r, err)
			return
		}
		if err := validateRequest(request); err != nil {
			api.BadRequestResponse(w, r, err)
			return
		}
		points, err = trackio.DecodeCoursePolyline(request.Polyline)
	default:
		api.errorResponse(w, r, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported course content type %q", r.Header.Get("Content-Type")))
		return
	}
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	name := p.ByName("name")
	track, err := api.courseService.PutCourse(name, points)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewCourseResponse(name, track)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *statsAPI) getCourse(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	name := p.ByName("name")
	track, err := api.courseService.GetCourse(name)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewCourseResponse(name, track)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *statsAPI) listCourses(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": api.courseService.Names()}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

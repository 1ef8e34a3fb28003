package controllers

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	helper "github.com/lintang-b-s/bikestats/pkg/http/router/routerhelper"
	"github.com/lintang-b-s/bikestats/pkg/session"
	"github.com/lintang-b-s/bikestats/pkg/trackio"
	"go.uber.org/zap"
)

type statsAPI struct {
	sessionService SessionService
	courseService  CourseService
	log            *zap.Logger
}

func New(sessionService SessionService, courseService CourseService, log *zap.Logger) *statsAPI {
	return &statsAPI{
		sessionService: sessionService,
		courseService:  courseService,
		log:            log,
	}
}

func (api *statsAPI) Routes(group *helper.RouteGroup) {
	group.POST("/sessions", api.createSession)
	group.DELETE("/sessions/:id", api.deleteSession)
	group.POST("/sessions/:id/fixes", api.addFix)
	group.GET("/sessions/:id/stats", api.stats)
	group.POST("/sessions/:id/clear", api.clear)
	group.POST("/sessions/:id/course", api.loadCourse)
	group.GET("/sessions/:id/history", api.exportHistory)
	group.PUT("/sessions/:id/history", api.importHistory)

	group.GET("/courses", api.listCourses)
	group.PUT("/courses/:name", api.putCourse)
	group.GET("/courses/:name", api.getCourse)
}

// createSession
//
//	@Summary		start a ride session
//	@Description	mode is gps (free ride) or course, a course session may start with a stored course
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		createSessionRequest	true	"session"
//	@Success		201		{object}	createSessionResponse
//	@Failure		400		{object}	errorResponse
//	@Failure		404		{object}	errorResponse
//	@Router			/sessions [post]
func (api *statsAPI) createSession(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request createSessionRequest
	if r.ContentLength != 0 {
		if err := api.readJSON(w, r, &request); err != nil {
			api.BadRequestResponse(w, r, err)
			return
		}
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	mode, err := session.ParseMode(request.Mode)
	if err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	id, err := api.sessionService.CreateSession(r.Context(), mode, request.Course)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/api/sessions/"+id)
	if err := api.writeJSON(w, http.StatusCreated, envelope{"data": createSessionResponse{ID: id, Mode: string(mode)}},
		headers); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *statsAPI) deleteSession(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := api.sessionService.DeleteSession(p.ByName("id")); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addFix
//
//	@Summary	feed one location fix
//	@Tags		sessions
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string		true	"session id"
//	@Param		body	body		fixRequest	true	"fix"
//	@Success	200		{object}	session.Stats
//	@Failure	400		{object}	errorResponse
//	@Failure	404		{object}	errorResponse
//	@Router		/sessions/{id}/fixes [post]
func (api *statsAPI) addFix(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request fixRequest
	if err := api.readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	stats, err := api.sessionService.AddFix(r.Context(), p.ByName("id"), request.ToFix())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": stats}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// stats
//
//	@Summary	ride statistics
//	@Tags		sessions
//	@Produce	json
//	@Param		id		path		string	true	"session id"
//	@Param		window	query		int		false	"average speed window in meter"
//	@Success	200		{object}	session.Stats
//	@Failure	404		{object}	errorResponse
//	@Router		/sessions/{id}/stats [get]
func (api *statsAPI) stats(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	window := 0
	if q := r.URL.Query().Get("window"); q != "" {
		w64, err := strconv.ParseInt(q, 10, 32)
		if err != nil || w64 < 0 {
			api.BadRequestResponse(w, r, errors.New("window must be a non negative integer"))
			return
		}
		window = int(w64)
	}

	stats, err := api.sessionService.Stats(r.Context(), p.ByName("id"), window)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": stats}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *statsAPI) clear(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := api.sessionService.Clear(r.Context(), p.ByName("id")); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *statsAPI) loadCourse(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request loadCourseRequest
	if err := api.readJSON(w, r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := api.sessionService.LoadCourse(r.Context(), p.ByName("id"), request.Course); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exportHistory
//
//	@Summary	accepted fixes, newest first
//	@Tags		sessions
//	@Produce	text/csv,application/gpx+xml,json
//	@Param		id		path	string	true	"session id"
//	@Param		format	query	string	false	"csv (default), gpx or polyline"
//	@Router		/sessions/{id}/history [get]
func (api *statsAPI) exportHistory(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id := p.ByName("id")
	format := r.URL.Query().Get("format")
	switch format {
	case "", "csv", "gpx", "polyline":
	default:
		api.BadRequestResponse(w, r, errors.New("format must be one of csv, gpx, polyline"))
		return
	}

	records, err := api.sessionService.ExportHistory(r.Context(), id)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	switch format {
	case "polyline":
		resp := historyPolylineResponse{Records: len(records), Polyline: trackio.EncodeHistoryPolyline(records)}
		if err := api.writeJSON(w, http.StatusOK, envelope{"data": resp}, nil); err != nil {
			api.ServerErrorResponse(w, r, err)
		}
	case "gpx":
		w.Header().Set("Content-Type", "application/gpx+xml")
		if err := trackio.WriteHistoryGPX(w, id, records); err != nil {
			api.logError(r, err)
		}
	default:
		w.Header().Set("Content-Type", "text/csv")
		if err := trackio.WriteHistory(w, records, false); err != nil {
			api.logError(r, err)
		}
	}
}

// importHistory replaces the session history with a csv (optionally bzip2 compressed) body.
func (api *statsAPI) importHistory(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, MAX_BODY_BYTES)
	records, err := trackio.ReadHistory(r.Body)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.sessionService.ImportHistory(r.Context(), p.ByName("id"), records); err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	stats, err := api.sessionService.Stats(r.Context(), p.ByName("id"), 0)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": stats}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

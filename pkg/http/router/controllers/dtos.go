package controllers

import (
	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/trackio"
)

type createSessionRequest struct {
	Mode   string `json:"mode" validate:"omitempty,oneof=gps course"`
	Course string `json:"course" validate:"omitempty,max=64"`
}

type createSessionResponse struct {
	ID   string `json:"id"`
	Mode string `json:"mode"`
}

type loadCourseRequest struct {
	Course string `json:"course" validate:"required,max=64"`
}

// fixRequest. pointers tell a missing field apart from 0
type fixRequest struct {
	Lat      *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lon      *float64 `json:"lon" validate:"required,min=-180,max=180"`
	Altitude float64  `json:"altitude"`
	Accuracy *float64 `json:"accuracy" validate:"required,min=0"`
	Speed    *float64 `json:"speed" validate:"omitempty,min=0"`
	Time     int64    `json:"time" validate:"required,gt=0"` // unix millis
}

func (r fixRequest) ToFix() da.Fix {
	fix := da.NewFix(*r.Lat, *r.Lon, r.Altitude, *r.Accuracy, r.Time)
	if r.Speed != nil {
		fix = fix.WithSpeed(*r.Speed)
	}
	return fix
}

type coursePolylineRequest struct {
	Polyline string `json:"polyline" validate:"required"`
}

type courseResponse struct {
	Name      string  `json:"name"`
	Waypoints int     `json:"waypoints"`
	Length    float64 `json:"length"`
	Polyline  string  `json:"polyline"`
}

func NewCourseResponse(name string, track *da.ReferenceTrack) courseResponse {
	return courseResponse{
		Name:      name,
		Waypoints: track.Len(),
		Length:    track.Length(),
		Polyline:  trackio.EncodeTrackPolyline(track),
	}
}

type historyPolylineResponse struct {
	Records  int    `json:"records"`
	Polyline string `json:"polyline"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

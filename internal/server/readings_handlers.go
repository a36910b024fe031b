package server

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/readings"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/uploads"
)

type createReadingRequest struct {
	NozzleID     uuid.UUID       `json:"nozzleId"`
	ReadingDate  model.Date      `json:"readingDate"`
	ReadingTime  string          `json:"readingTime,omitempty"`
	ReadingValue decimal.Decimal `json:"readingValue"`
	ShiftID      *uuid.UUID      `json:"shiftId,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	IsSample     bool            `json:"isSample,omitempty"`
	IsInitial    bool            `json:"isInitialReading,omitempty"`
}

func (s *Server) handleCreateReading(w http.ResponseWriter, r *http.Request) {
	var req createReadingRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	reading, err := s.deps.Readings.Create(r.Context(), actorFrom(r.Context()), readings.CreateInput{
		NozzleID:         req.NozzleID,
		ReadingDate:      req.ReadingDate,
		ReadingTime:      req.ReadingTime,
		ReadingValue:     req.ReadingValue,
		ShiftID:          req.ShiftID,
		Notes:            req.Notes,
		IsSample:         req.IsSample,
		IsInitialReading: req.IsInitial,
		Source:           model.SourceManual,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ReadingsCreated.WithLabelValues(string(model.SourceManual)).Inc()
		if reading.TotalAmount.IsPositive() {
			amount, _ := reading.TotalAmount.Float64()
			s.deps.Metrics.SalesAmount.WithLabelValues(string(reading.FuelType)).Add(amount)
		}
	}
	respond(w, http.StatusCreated, reading)
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	nozzleID, err := queryUUIDOptional(r, "nozzle_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	pumpID, err := queryUUIDOptional(r, "pump_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	f := readings.Filter{StationID: stationID, NozzleID: nozzleID, PumpID: pumpID}
	if from, ok, err := queryDate(r, "from"); err != nil {
		respondErr(w, r, s.logger, err)
		return
	} else if ok {
		f.From = &from
	}
	if to, ok, err := queryDate(r, "to"); err != nil {
		respondErr(w, r, s.logger, err)
		return
	} else if ok {
		f.To = &to
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := model.ApprovalStatus(raw)
		f.Status = &status
	}
	f.Page, f.Limit = s.pagination(r)

	rows, total, err := s.deps.Readings.List(r.Context(), actorFrom(r.Context()), f)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respondPage(w, rows, f.Page, f.Limit, total)
}

func (s *Server) handleLastReading(w http.ResponseWriter, r *http.Request) {
	nozzleID, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	before, ok, err := queryDate(r, "before")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	if !ok {
		before = model.DateOf(s.deps.Clock.Now()).AddDays(1)
	}
	reading, err := s.deps.Readings.Previous(r.Context(), actorFrom(r.Context()), nozzleID, before)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, reading)
}

func (s *Server) handleApproveReading(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	reading, err := s.deps.Readings.Approve(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, reading)
}

type rejectReadingRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRejectReading(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req rejectReadingRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	reading, err := s.deps.Readings.Reject(r.Context(), actorFrom(r.Context()), id, req.Reason)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, reading)
}

// maxUploadBytes bounds receipt images; OCR providers reject larger files
// anyway.
const maxUploadBytes = 10 << 20

// handleUploadReading accepts a multipart receipt image and runs the OCR
// pipeline. Form fields: image (file), station_id, reading_date,
// reading_time, shift_id, pump_serial.
func (s *Server) handleUploadReading(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondErr(w, r, s.logger, apperr.Wrap(apperr.KindValidation, err, "invalid multipart form"))
		return
	}
	stationID, err := uuid.Parse(r.FormValue("station_id"))
	if err != nil {
		respondErr(w, r, s.logger, apperr.New(apperr.KindValidation, "invalid station_id"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondErr(w, r, s.logger, apperr.New(apperr.KindValidation, "image file is required"))
		return
	}
	defer file.Close()
	image, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		respondErr(w, r, s.logger, apperr.Wrap(apperr.KindValidation, err, "read image"))
		return
	}

	in := uploads.ProcessInput{
		StationID:          stationID,
		Image:              image,
		ContentType:        header.Header.Get("Content-Type"),
		ReadingTime:        r.FormValue("reading_time"),
		ExpectedPumpSerial: r.FormValue("pump_serial"),
	}
	if raw := r.FormValue("reading_date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			respondErr(w, r, s.logger, apperr.New(apperr.KindValidation, "invalid reading_date, expected YYYY-MM-DD"))
			return
		}
		in.ReadingDate = d
	} else {
		in.ReadingDate = model.DateOf(s.deps.Clock.Now())
	}
	if raw := r.FormValue("shift_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondErr(w, r, s.logger, apperr.New(apperr.KindValidation, "invalid shift_id"))
			return
		}
		in.ShiftID = &id
	}

	upload, err := s.deps.Uploads.Process(r.Context(), actorFrom(r.Context()), in)
	if s.deps.Metrics != nil {
		status := "failed"
		if err == nil && upload != nil {
			status = string(upload.Status)
		}
		s.deps.Metrics.OCRUploads.WithLabelValues(status).Inc()
	}
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, upload)
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	upload, err := s.deps.Uploads.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, upload)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	list, err := s.deps.Uploads.List(r.Context(), actorFrom(r.Context()), stationID, queryInt(r, "limit", "50"))
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

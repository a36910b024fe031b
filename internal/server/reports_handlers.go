package server

import (
	"net/http"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stationID, err := pathUUID(r, "stationId")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	d, err := s.deps.Reports.GetDashboard(r.Context(), actorFrom(r.Context()), stationID)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, d)
}

func (s *Server) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	from, to, err := s.dateRange(r)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	report, err := s.deps.Reports.Sales(r.Context(), actorFrom(r.Context()), stationID, from, to)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, report)
}

func (s *Server) handlePumpReport(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	from, to, err := s.dateRange(r)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	report, err := s.deps.Reports.Pumps(r.Context(), actorFrom(r.Context()), stationID, from, to)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, report)
}

func (s *Server) handleProfitReport(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	from, to, err := s.dateRange(r)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	report, err := s.deps.Reports.Profit(r.Context(), actorFrom(r.Context()), stationID, from, to)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, report)
}

func (s *Server) handleAuditReport(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	from, to, err := s.dateRange(r)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	rows, err := s.deps.Reports.AuditTrail(r.Context(), actorFrom(r.Context()), stationID, from, to, queryInt(r, "limit", "200"))
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, rows)
}

// Package uploads runs the OCR receipt flow: store the image, extract text,
// parse totalizers, auto-create missing pumps and nozzles, and create one
// reading per parsed row.
package uploads

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/audit"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/auth"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/blob"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/clock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/readings"
)

// Store is the persistence slice the upload engine needs.
type Store interface {
	Upload(ctx context.Context, id uuid.UUID) (*model.Upload, error)
	ListUploads(ctx context.Context, stationID uuid.UUID, limit int) ([]*model.Upload, error)
	CreateUploadTx(ctx context.Context, u *model.Upload, entry *model.AuditLog) error
	UpdateUploadTx(ctx context.Context, u *model.Upload, entry *model.AuditLog) error

	PumpBySerial(ctx context.Context, stationID uuid.UUID, serial string) (*model.Pump, error)
	NextPumpNumber(ctx context.Context, stationID uuid.UUID) (int, error)
	NozzleByNumber(ctx context.Context, pumpID uuid.UUID, nozzleNumber int) (*model.Nozzle, error)
	CreatePumpTx(ctx context.Context, p *model.Pump, entry *model.AuditLog) error
	CreateNozzleTx(ctx context.Context, n *model.Nozzle, entry *model.AuditLog) error
}

// Texts turns image bytes into receipt text.
type Texts interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Readings is the slice of the reading engine the upload flow uses.
type Readings interface {
	Create(ctx context.Context, actor auth.Actor, in readings.CreateInput) (*model.NozzleReading, error)
}

type Engine struct {
	store    Store
	authz    auth.Authorizer
	blobs    blob.Store
	texts    Texts
	readings Readings
	clock    clock.Clock
	log      zerolog.Logger
}

func NewEngine(store Store, authz auth.Authorizer, blobs blob.Store, texts Texts, rds Readings, clk clock.Clock, log zerolog.Logger) *Engine {
	return &Engine{store: store, authz: authz, blobs: blobs, texts: texts, readings: rds, clock: clk, log: log}
}

// ProcessInput is one receipt image.
type ProcessInput struct {
	StationID   uuid.UUID
	Image       []byte
	ContentType string
	ReadingDate model.Date
	ReadingTime string
	ShiftID     *uuid.UUID
	// ExpectedPumpSerial, when set, must match the serial printed on the
	// receipt.
	ExpectedPumpSerial string
}

// Process runs the whole flow. OCR failures mark the upload failed and
// return it; they are not server errors.
func (e *Engine) Process(ctx context.Context, actor auth.Actor, in ProcessInput) (*model.Upload, error) {
	if len(in.Image) == 0 {
		return nil, apperr.New(apperr.KindValidation, "image is required")
	}
	if err := e.authz.AssertStation(ctx, actor.User, in.StationID); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if in.ReadingDate.IsZero() {
		in.ReadingDate = model.DateOf(now)
	}

	u := &model.Upload{
		ID:         uuid.New(),
		StationID:  in.StationID,
		UploadedBy: actor.User.ID,
		Status:     model.UploadProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if url, err := e.blobs.Put(ctx, in.Image, in.ContentType); err != nil {
		e.log.Warn().Err(err).Str("station_id", in.StationID.String()).Msg("receipt image upload failed, continuing without file url")
	} else {
		u.FileURL = url
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &in.StationID, Action: "receipt_upload_started",
		EntityType: "upload", EntityID: &u.ID,
		NewValues: map[string]any{"fileUrl": u.FileURL},
		Category:  model.CategoryData, Success: true,
	}.Build(now)
	if err := e.store.CreateUploadTx(ctx, u, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "create upload")
	}

	text, err := e.texts.ExtractText(ctx, in.Image)
	if err != nil {
		return e.fail(ctx, actor, u, "ocr extraction failed: "+apperr.MessageOf(err))
	}
	receipt, err := ParseReceipt(text)
	if err != nil {
		return e.fail(ctx, actor, u, apperr.MessageOf(err))
	}
	if in.ExpectedPumpSerial != "" && receipt.PumpSerial != "" &&
		!strings.EqualFold(in.ExpectedPumpSerial, receipt.PumpSerial) {
		return e.fail(ctx, actor, u, "receipt is from pump "+receipt.PumpSerial+", expected "+in.ExpectedPumpSerial)
	}
	if len(receipt.Rows) == 0 {
		return e.fail(ctx, actor, u, "no nozzle readings found on receipt")
	}

	serial := receipt.PumpSerial
	if serial == "" {
		serial = strings.ToUpper(in.ExpectedPumpSerial)
	}
	pump, err := e.ensurePump(ctx, actor, in.StationID, serial)
	if err != nil {
		return e.fail(ctx, actor, u, apperr.MessageOf(err))
	}

	u.PumpSerial = serial
	var created []uuid.UUID
	var failures []string
	for _, row := range receipt.Rows {
		nozzle, err := e.ensureNozzle(ctx, actor, pump, row.NozzleNumber)
		if err != nil {
			failures = append(failures, apperr.MessageOf(err))
			continue
		}
		r, err := e.readings.Create(ctx, actor, readings.CreateInput{
			NozzleID:     nozzle.ID,
			ReadingDate:  in.ReadingDate,
			ReadingTime:  in.ReadingTime,
			ReadingValue: row.Value,
			ShiftID:      in.ShiftID,
			Source:       model.SourceOCR,
		})
		if err != nil {
			failures = append(failures, apperr.MessageOf(err))
			continue
		}
		created = append(created, r.ID)
	}

	if len(created) == 0 {
		return e.fail(ctx, actor, u, "no readings created: "+strings.Join(failures, "; "))
	}

	done := e.clock.Now()
	u.Status = model.UploadSuccess
	u.ReadingIDs = created
	if len(failures) > 0 {
		u.ErrorMessage = "partial: " + strings.Join(failures, "; ")
	}
	u.UpdatedAt = done

	entry = audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &u.StationID, Action: "receipt_upload_processed",
		EntityType: "upload", EntityID: &u.ID,
		NewValues: map[string]any{"pumpSerial": serial, "readings": len(created), "failures": len(failures)},
		Category:  model.CategoryData, Success: true,
	}.Build(done)
	if err := e.store.UpdateUploadTx(ctx, u, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "update upload")
	}
	return u, nil
}

func (e *Engine) fail(ctx context.Context, actor auth.Actor, u *model.Upload, reason string) (*model.Upload, error) {
	now := e.clock.Now()
	u.Status = model.UploadFailed
	u.ErrorMessage = reason
	u.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &u.StationID, Action: "receipt_upload_failed",
		EntityType: "upload", EntityID: &u.ID,
		NewValues: map[string]any{"error": reason},
		Category:  model.CategoryData, Severity: model.SeverityWarning,
		Success: false, Error: reason,
	}.Build(now)
	if err := e.store.UpdateUploadTx(ctx, u, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "mark upload failed")
	}
	return u, nil
}

// ensurePump finds the station's pump by serial, creating it when the
// receipt names one the station has not registered yet.
func (e *Engine) ensurePump(ctx context.Context, actor auth.Actor, stationID uuid.UUID, serial string) (*model.Pump, error) {
	if serial == "" {
		return nil, apperr.New(apperr.KindValidation, "pump serial is unknown")
	}
	if p, err := e.store.PumpBySerial(ctx, stationID, serial); err == nil && p != nil {
		return p, nil
	}

	number, err := e.store.NextPumpNumber(ctx, stationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "allocate pump number")
	}
	now := e.clock.Now()
	p := &model.Pump{
		ID:         uuid.New(),
		StationID:  stationID,
		Name:       "Pump " + serial,
		PumpNumber: number,
		Serial:     serial,
		Status:     model.PumpActive,
		CreatedAt:  now,
	}
	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &stationID, Action: "pump_auto_created",
		EntityType: "pump", EntityID: &p.ID,
		NewValues: map[string]any{"serial": serial, "pumpNumber": number},
		Category:  model.CategoryData, Severity: model.SeverityWarning, Success: true,
	}.Build(now)
	if err := e.store.CreatePumpTx(ctx, p, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "auto-create pump")
	}
	e.log.Info().Str("station_id", stationID.String()).Str("serial", serial).Msg("auto-created pump from receipt")
	return p, nil
}

// ensureNozzle finds or creates the pump's nozzle by number, using the
// conventional 1-2 petrol / 3-4 diesel fuel mapping for new ones.
func (e *Engine) ensureNozzle(ctx context.Context, actor auth.Actor, pump *model.Pump, number int) (*model.Nozzle, error) {
	if n, err := e.store.NozzleByNumber(ctx, pump.ID, number); err == nil && n != nil {
		return n, nil
	}

	now := e.clock.Now()
	n := &model.Nozzle{
		ID:           uuid.New(),
		PumpID:       pump.ID,
		StationID:    pump.StationID,
		NozzleNumber: number,
		FuelType:     model.FuelType(DefaultFuelFor(number)),
		Status:       model.PumpActive,
		CreatedAt:    now,
	}
	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &pump.StationID, Action: "nozzle_auto_created",
		EntityType: "nozzle", EntityID: &n.ID,
		NewValues: map[string]any{"pumpId": pump.ID.String(), "nozzleNumber": number, "fuelType": string(n.FuelType)},
		Category:  model.CategoryData, Severity: model.SeverityWarning, Success: true,
	}.Build(now)
	if err := e.store.CreateNozzleTx(ctx, n, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "auto-create nozzle")
	}
	return n, nil
}

// Get returns one upload after a scope check.
func (e *Engine) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.Upload, error) {
	u, err := e.store.Upload(ctx, id)
	if err != nil || u == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "upload not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, u.StationID); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns a station's recent uploads.
func (e *Engine) List(ctx context.Context, actor auth.Actor, stationID uuid.UUID, limit int) ([]*model.Upload, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := e.store.ListUploads(ctx, stationID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list uploads")
	}
	return rows, nil
}

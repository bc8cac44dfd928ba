package measurementRepository

import (
	"PupilMeter/internal/entity"
	contextPkg "PupilMeter/pkg/context"
	"context"
	"database/sql"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"time"
)

type MeasurementDB struct {
	ID          string          `db:"id"`
	SessionID   string          `db:"session_id"`
	Mode        sql.NullString  `db:"mode"`
	PDMM        float64         `db:"pd_mm"`
	PDPixels    sql.NullFloat64 `db:"pd_pixels"`
	Confidence  sql.NullFloat64 `db:"confidence"`
	LeftPupilX  sql.NullFloat64 `db:"left_pupil_x"`
	LeftPupilY  sql.NullFloat64 `db:"left_pupil_y"`
	RightPupilX sql.NullFloat64 `db:"right_pupil_x"`
	RightPupilY sql.NullFloat64 `db:"right_pupil_y"`
	FrameCount  sql.NullInt64   `db:"frame_count"`
	MeasuredAt  time.Time       `db:"measured_at"`
}

func (m MeasurementDB) toEntity() entity.MeasurementRecord {
	return entity.MeasurementRecord{
		ID:         m.ID,
		SessionID:  m.SessionID,
		Mode:       entity.SessionMode(m.Mode.String),
		PDMM:       m.PDMM,
		PDPixels:   m.PDPixels.Float64,
		Confidence: m.Confidence.Float64,
		LeftPupil:  entity.Point{X: m.LeftPupilX.Float64, Y: m.LeftPupilY.Float64},
		RightPupil: entity.Point{X: m.RightPupilX.Float64, Y: m.RightPupilY.Float64},
		FrameCount: int(m.FrameCount.Int64),
		MeasuredAt: m.MeasuredAt,
	}
}

func (r *measurementRepository) CreateMeasurement(c context.Context, record entity.MeasurementRecord) error {
	requestID := contextPkg.GetRequestID(c)

	measuredAt := record.MeasuredAt
	if measuredAt.IsZero() {
		measuredAt = time.Now()
	}

	argsKV := map[string]interface{}{
		"id":            record.ID,
		"session_id":    record.SessionID,
		"mode":          string(record.Mode),
		"pd_mm":         record.PDMM,
		"pd_pixels":     record.PDPixels,
		"confidence":    record.Confidence,
		"left_pupil_x":  record.LeftPupil.X,
		"left_pupil_y":  record.LeftPupil.Y,
		"right_pupil_x": record.RightPupil.X,
		"right_pupil_y": record.RightPupil.Y,
		"frame_count":   record.FrameCount,
		"measured_at":   measuredAt,
	}

	query, args, err := sqlx.Named(queryCreateMeasurement, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateMeasurement")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": record.SessionID,
			"error":      err.Error(),
		}).Error("Database error when creating measurement")
		return err
	}

	return nil
}

func (r *measurementRepository) GetMeasurementsBySessionID(c context.Context, sessionID string) ([]entity.MeasurementRecord, error) {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"session_id": sessionID,
	}

	query, args, err := sqlx.Named(queryGetMeasurementsBySessionID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetMeasurementsBySessionID named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	var rows []MeasurementDB
	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Database error when listing measurements")
		return nil, err
	}

	records := make([]entity.MeasurementRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toEntity())
	}

	return records, nil
}

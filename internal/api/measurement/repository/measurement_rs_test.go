package measurementRepository

import (
	"PupilMeter/internal/entity"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor records the statements it is given. Only ExecContext and
// SelectContext are exercised by the store.
type fakeExecutor struct {
	sqlx.ExtContext

	query string
	args  []interface{}
	rows  []MeasurementDB
	err   error
}

func (f *fakeExecutor) Rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

func (f *fakeExecutor) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.query, f.args = query, args
	return nil, f.err
}

func (f *fakeExecutor) SelectContext(_ context.Context, dest interface{}, query string, args ...interface{}) error {
	f.query, f.args = query, args
	if f.err != nil {
		return f.err
	}
	*dest.(*[]MeasurementDB) = f.rows
	return nil
}

func newStore(exec *fakeExecutor) *measurementRepository {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &measurementRepository{q: exec, log: log}
}

func TestCreateMeasurement(t *testing.T) {
	exec := &fakeExecutor{}
	store := newStore(exec)

	measuredAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := store.CreateMeasurement(context.Background(), entity.MeasurementRecord{
		ID:         "rec-1",
		SessionID:  "sess-1",
		Mode:       entity.SessionModeAuto,
		PDMM:       62.9,
		PDPixels:   102.4,
		Confidence: 0.82,
		LeftPupil:  entity.Point{X: 371.2, Y: 216},
		RightPupil: entity.Point{X: 268.8, Y: 216},
		FrameCount: 20,
		MeasuredAt: measuredAt,
	})
	require.NoError(t, err)

	assert.True(t, strings.Contains(exec.query, "INSERT INTO pd_measurements"))
	assert.True(t, strings.Contains(exec.query, "$12"))
	assert.False(t, strings.Contains(exec.query, ":session_id"))
	require.Len(t, exec.args, 12)
	assert.Equal(t, "rec-1", exec.args[0])
	assert.Equal(t, "sess-1", exec.args[1])
	assert.Equal(t, "auto", exec.args[2])
	assert.Equal(t, 62.9, exec.args[3])
	assert.Equal(t, measuredAt, exec.args[11])
}

func TestCreateMeasurementDefaultsTimestamp(t *testing.T) {
	exec := &fakeExecutor{}
	store := newStore(exec)

	require.NoError(t, store.CreateMeasurement(context.Background(), entity.MeasurementRecord{ID: "r", SessionID: "s"}))
	stamp, ok := exec.args[11].(time.Time)
	require.True(t, ok)
	assert.False(t, stamp.IsZero())
}

func TestCreateMeasurementPropagatesErrors(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("connection reset")}
	err := newStore(exec).CreateMeasurement(context.Background(), entity.MeasurementRecord{ID: "r", SessionID: "s"})
	assert.EqualError(t, err, "connection reset")
}

func TestGetMeasurementsBySessionID(t *testing.T) {
	measuredAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	exec := &fakeExecutor{rows: []MeasurementDB{
		{
			ID:          "rec-1",
			SessionID:   "sess-1",
			Mode:        sql.NullString{String: "manual", Valid: true},
			PDMM:        63.1,
			PDPixels:    sql.NullFloat64{Float64: 102.4, Valid: true},
			Confidence:  sql.NullFloat64{Float64: 0.9, Valid: true},
			LeftPupilX:  sql.NullFloat64{Float64: 371.2, Valid: true},
			RightPupilX: sql.NullFloat64{Float64: 268.8, Valid: true},
			FrameCount:  sql.NullInt64{Int64: 20, Valid: true},
			MeasuredAt:  measuredAt,
		},
		{ID: "rec-0", SessionID: "sess-1", PDMM: 62.5, MeasuredAt: measuredAt.Add(-time.Minute)},
	}}

	records, err := newStore(exec).GetMeasurementsBySessionID(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.True(t, strings.Contains(exec.query, "WHERE session_id = $1"))
	assert.Equal(t, []interface{}{"sess-1"}, exec.args)

	require.Len(t, records, 2)
	assert.Equal(t, entity.SessionModeManual, records[0].Mode)
	assert.Equal(t, 20, records[0].FrameCount)
	assert.Equal(t, 371.2, records[0].LeftPupil.X)
	assert.Equal(t, 0.0, records[1].Confidence)
	assert.Equal(t, entity.SessionMode(""), records[1].Mode)
}

func TestGetMeasurementsBySessionIDEmpty(t *testing.T) {
	records, err := newStore(&fakeExecutor{}).GetMeasurementsBySessionID(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

package measurementRepository

const (
	queryCreateMeasurement = `
		INSERT INTO pd_measurements (
			id,
			session_id,
			mode,
			pd_mm,
			pd_pixels,
			confidence,
			left_pupil_x,
			left_pupil_y,
			right_pupil_x,
			right_pupil_y,
			frame_count,
			measured_at
		) VALUES (
			:id,
			:session_id,
			:mode,
			:pd_mm,
			:pd_pixels,
			:confidence,
			:left_pupil_x,
			:left_pupil_y,
			:right_pupil_x,
			:right_pupil_y,
			:frame_count,
			:measured_at
		)
	`

	queryGetMeasurementsBySessionID = `
		SELECT
			id,
			session_id,
			mode,
			pd_mm,
			pd_pixels,
			confidence,
			left_pupil_x,
			left_pupil_y,
			right_pupil_x,
			right_pupil_y,
			frame_count,
			measured_at
		FROM pd_measurements
		WHERE session_id = :session_id
		ORDER BY measured_at DESC
	`
)

package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      id,
                      start_time,
                      mode,
                      config)
VALUES (?, CURRENT_TIMESTAMP, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    mode,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    mode,
    config
FROM sessions
ORDER BY start_time`

	insertSweepSQL = `
INSERT INTO sweeps (session_id,
                    bandwidth,
                    sweep_index,
                    start_time,
                    end_time)
VALUES (?, ?, ?, ?, ?)`

	insertPointSQL = `
INSERT INTO points (sweep_id,
                    point_index,
                    frequency,
                    z0,
                    param,
                    re,
                    im)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectSweepsSQL = `
SELECT
    id,
    session_id,
    bandwidth,
    sweep_index,
    start_time,
    end_time
FROM sweeps
WHERE
    session_id = ?
ORDER BY id`

	selectPointsSQL = `
SELECT
    point_index,
    frequency,
    z0,
    param,
    re,
    im
FROM points
WHERE
    sweep_id = ?
ORDER BY point_index`
)

//go:embed schema.sql
var initSchemaSQL string

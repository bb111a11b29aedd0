package vna

// Control channel vocabulary. One command or query per line, newline
// terminated. Queries end in '?' and return exactly one line.
const (
	// Sweep configuration
	CmdSweepType     = "SENS:SWE:TYPE"  // LIN
	CmdFreqStart     = "SENS:FREQ:STAR" // Hz
	CmdFreqStop      = "SENS:FREQ:STOP" // Hz; re-writing this value triggers a sweep in single mode
	CmdSweepPoints   = "SENS:SWE:POIN"
	CmdBandwidth     = "SENS:BWID" // acquisition bandwidth, Hz
	CmdAverageCount  = "SENS:AVER:COUN"
	CmdStimulusPower = "SOUR:POW" // dBm

	// Acquisition control
	CmdContinuousOn  = "INIT:CONT ON"
	CmdContinuousOff = "INIT:CONT OFF"
	CmdRun           = "INIT:IMM"
	CmdAbort         = "ABOR"

	// Queries
	QuerySweepDone   = "STAT:OPER:DONE?" // "1" once the triggered sweep has finished
	QueryTraceData   = "CALC:DATA? SDATA"
	QueryCalibration = "MMEM:LOAD:CAL?" // takes a quoted path argument
	QueryErrorStatus = "*ESR?"          // bit-field, non-zero means the last command failed

	// Preferences. Applying preferences persists them to disk and terminates
	// the server process as a side effect; both commands set spurious error
	// bits on success and must be sent unchecked.
	CmdPrefSet   = "SYST:PREF:SET"
	CmdPrefApply = "SYST:PREF:APPLY"

	// PrefStreamEnabled switches the per-point streaming channel on. Takes
	// effect only after CmdPrefApply and a server restart.
	PrefStreamEnabled = "stream.calibrated.enabled"
)

package errs

const (
	ErrCode_OK            = 0
	ErrCode_Unknown       = 1
	ErrCode_BadDeadline   = 2
	ErrCode_Request       = 3
	ErrCode_BadStatus     = 4
	ErrCode_RegionMissing = 5
	ErrCode_LoopClosed    = 6
	ErrCode_LoopBusy      = 7
	ErrCode_ClockClosed   = 8
)

var (
	Unknown       = CreateCodeError(ErrCode_Unknown, "UNKNOWN")
	BadDeadline   = CreateCodeError(ErrCode_BadDeadline, "BAD_DEADLINE")
	Request       = CreateCodeError(ErrCode_Request, "REQUEST_FAILED")
	BadStatus     = CreateCodeError(ErrCode_BadStatus, "BAD_STATUS")
	RegionMissing = CreateCodeError(ErrCode_RegionMissing, "REGION_MISSING")
	LoopClosed    = CreateCodeError(ErrCode_LoopClosed, "LOOP_CLOSED")
	LoopBusy      = CreateCodeError(ErrCode_LoopBusy, "LOOP_BUSY")
	ClockClosed   = CreateCodeError(ErrCode_ClockClosed, "CLOCK_CLOSED")
)

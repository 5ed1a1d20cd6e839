package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is 判断err是否为指定code的AppError
func Is(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

var (
	ErrConfigLoad      = "CONFIG_LOAD_ERROR"
	ErrDatabaseConnect = "DATABASE_CONNECT_ERROR"
	ErrRPCConnect      = "RPC_CONNECT_ERROR"
	ErrBlockFetch      = "BLOCK_FETCH_ERROR"
	ErrEventParse      = "EVENT_PARSE_ERROR"
	ErrRateFetch       = "RATE_FETCH_ERROR"
	ErrStakeIngest     = "STAKE_INGEST_ERROR"
	ErrReconcile       = "RECONCILE_ERROR"
	ErrAggregateQuery  = "AGGREGATE_QUERY_ERROR"
	ErrSnapshotWrite   = "SNAPSHOT_WRITE_ERROR"
	ErrRunInProgress   = "RUN_IN_PROGRESS"
)

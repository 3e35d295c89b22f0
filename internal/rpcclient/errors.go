package rpcclient

import "fmt"

// ErrClass classifies an RpcError for the retry/rollback policy in spec §7.
type ErrClass int

const (
	// ClassTransient is retried locally with a fixed backoff.
	ClassTransient ErrClass = iota
	// ClassNotFound means the explorer hasn't indexed this block/tx yet.
	ClassNotFound
	// ClassValidation means malformed input (bad address, height/hash mismatch).
	ClassValidation
	// ClassFatal means missing/invalid configuration or an unreachable node at startup.
	ClassFatal
)

// RpcError is returned by Node and Explorer on any non-2xx response or
// decode failure. It carries enough detail for callers to switch on Class
// without string-matching messages.
type RpcError struct {
	Status  int
	Code    int
	Message string
	Class   ErrClass
	Op      string
	Err     error
}

func (e *RpcError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: rpc error (status=%d code=%d): %s: %v", e.Op, e.Status, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: rpc error (status=%d code=%d): %s", e.Op, e.Status, e.Code, e.Message)
}

func (e *RpcError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a ClassNotFound RpcError — the
// "not yet indexed" signal from spec §4.1.
func IsNotFound(err error) bool {
	var rerr *RpcError
	if ok := asRpcError(err, &rerr); ok {
		return rerr.Class == ClassNotFound
	}
	return false
}

func asRpcError(err error, target **RpcError) bool {
	for err != nil {
		if rerr, ok := err.(*RpcError); ok {
			*target = rerr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func newRpcError(op string, status, code int, message string, class ErrClass, cause error) *RpcError {
	return &RpcError{Status: status, Code: code, Message: message, Class: class, Op: op, Err: cause}
}

package rf

import "errors"

var (
	ErrCollision      = errors.New("channel busy")
	ErrTimeout        = errors.New("radio did not respond in time")
	ErrTx             = errors.New("transmit failed")
	ErrNotInitialized = errors.New("radio not initialized")

	// Receive validation failures
	ErrBadSync  = errors.New("bad sync: length exceeds max packet")
	ErrTooShort = errors.New("packet too short")
	ErrTooLong  = errors.New("packet longer than buffer")
	ErrBadCRC   = errors.New("bad CRC")
)

// TxResult is the outcome of a transmit
type TxResult int

const (
	TxOK TxResult = iota
	TxCollision
	TxErr
	TxTimeout
)

func (r TxResult) String() string {
	switch r {
	case TxOK:
		return "OK"
	case TxCollision:
		return "COLLISION"
	case TxErr:
		return "ERROR"
	case TxTimeout:
		return "TIMEOUT"
	}
	return "UNKNOWN"
}

// Err maps the result to nil or one of the sentinel errors
func (r TxResult) Err() error {
	switch r {
	case TxOK:
		return nil
	case TxCollision:
		return ErrCollision
	case TxTimeout:
		return ErrTimeout
	}
	return ErrTx
}

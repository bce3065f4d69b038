package common

import (
	"errors"

	"github.com/ValentinKolb/sKV/lib/store"
)

func errCode(err error) store.RetCode {
	return store.CodeOf(err)
}

// errMessage strips the code prefix of a *store.Error, the code travels in its own field
func errMessage(err error) string {
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return storeErr.Msg
	}
	return err.Error()
}

// ResponseError converts the error fields of a response back into a *store.Error.
// Returns nil if the response carries no error.
func ResponseError(resp *Message) error {
	if resp.Err == "" && resp.MsgType != MsgTError {
		return nil
	}
	code := store.RetCode(resp.ErrCode)
	if code == store.RetCSuccess {
		code = store.RetCInternalError
	}
	return store.NewError(code, resp.Err)
}

package accounts

import "errors"

var NotFoundErr = errors.New("account not found")

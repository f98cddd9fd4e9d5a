package repository

import "errors"

// ErrConflito is returned by conditional writes that matched no row: the
// record changed (or vanished) between the read and the write.
var ErrConflito = errors.New("registro alterado por outra operação")

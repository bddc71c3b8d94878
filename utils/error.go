package utils

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrDuplicate prefixes unique-constraint failures, e.g. "duplicate qr_code".
var ErrDuplicate = errors.New("duplicate")

// IsDuplicateKeyErr reports whether err is a MySQL unique constraint violation.
func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

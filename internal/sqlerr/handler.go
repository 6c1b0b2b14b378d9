package sqlerr

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/deppfellow/station-api/internal/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrCode reports the mapped sqlerr.Code for a given error.
//
// Behavior:
//   - If err is (or wraps) a PostgreSQL or SQLite driver error, it is converted
//     first and its Code returned.
//   - If err already wraps a *sqlerr.Error, return its Code.
//   - Otherwise return sqlerr.Other.
func ErrCode(err error) Code {
	if sqlErr := convert(err); sqlErr != nil {
		return sqlErr.Code
	}
	return Other
}

// IsForeignKeyViolation reports whether the backend rejected a write because
// a referenced row does not exist.
func IsForeignKeyViolation(err error) bool {
	return ErrCode(err) == ForeignKeyViolation
}

// convert finds a driver error in err's chain and normalizes it.
func convert(err error) *Error {
	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return sqlErr
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return ConvertPgError(pgerr)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return ConvertSQLiteError(liteErr)
	}

	return nil
}

// ConvertPgError converts a pgconn.PgError (raw Postgres error) into our custom sqlerr.Error.
//
// pgconn.PgError contains Postgres-specific fields like:
//   - Code (SQLSTATE)
//   - Severity
//   - TableName/ColumnName/ConstraintName etc.
//
// We map SQLSTATE + Severity into our enums for easier switching.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// sqliteConstraint matches the constraint messages SQLite produces, e.g.
//
//	FOREIGN KEY constraint failed
//	NOT NULL constraint failed: mission.name
var sqliteConstraint = regexp.MustCompile(`(FOREIGN KEY|UNIQUE|NOT NULL|CHECK) constraint failed(?:: ([A-Za-z0-9_]+)\.([A-Za-z0-9_]+))?`)

// ConvertSQLiteError converts a modernc.org/sqlite error into sqlerr.Error.
//
// SQLite reports far less metadata than Postgres: the category comes from the
// extended result code when available, and the table/column from the
// message text.
func ConvertSQLiteError(src *sqlite.Error) *Error {
	out := &Error{
		Code:         Other,
		Severity:     SeverityError,
		DatabaseCode: fmt.Sprintf("%d", src.Code()),
		Message:      src.Error(),
		driverErr:    src,
	}

	switch src.Code() {
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		out.Code = ForeignKeyViolation
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		out.Code = UniqueViolation
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		out.Code = NotNullViolation
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		out.Code = CheckViolation
	}

	m := sqliteConstraint.FindStringSubmatch(src.Error())
	if m == nil {
		return out
	}

	// Without extended result codes only the primary SQLITE_CONSTRAINT is
	// known; the message tells which constraint failed.
	if out.Code == Other && src.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		switch m[1] {
		case "FOREIGN KEY":
			out.Code = ForeignKeyViolation
		case "UNIQUE":
			out.Code = UniqueViolation
		case "NOT NULL":
			out.Code = NotNullViolation
		case "CHECK":
			out.Code = CheckViolation
		}
	}

	out.TableName = m[2]
	out.ColumnName = m[3]

	return out
}

// generateErrorCode creates consistent "application error codes" from DB errors.
//
// Output format:
//
//	<DOMAIN>_<ACTION>
//
// Example:
//
//	mission + UniqueViolation => MISSION_ALREADY_EXISTS
//
// DOMAIN comes from the table name, ACTION from the violation type. These
// codes are meant for machines (frontend logic, analytics), not humans.
func generateErrorCode(tableName string, errType Code) string {
	if tableName == "" {
		tableName = "RECORD"
	}

	domain := strings.ToUpper(tableName)

	// Very naive singularization: "MISSIONS" -> "MISSION".
	if strings.HasSuffix(domain, "S") && len(domain) > 1 {
		domain = domain[:len(domain)-1]
	}

	action := "ERROR"
	switch errType {
	case ForeignKeyViolation:
		action = "NOT_FOUND"
	case UniqueViolation:
		action = "ALREADY_EXISTS"
	case NotNullViolation:
		action = "REQUIRED"
	case CheckViolation:
		action = "INVALID"
	}

	return fmt.Sprintf("%s_%s", domain, action)
}

// formatUserFriendlyMessage produces an end-user-facing error message.
func formatUserFriendlyMessage(sqlErr *Error) string {
	entityName := getEntityName(sqlErr.TableName, sqlErr.ColumnName)

	switch sqlErr.Code {
	case ForeignKeyViolation:
		return fmt.Sprintf("The referenced %s does not exist", entityName)

	case UniqueViolation:
		// "identifier" is replaced later if the column can be inferred.
		return fmt.Sprintf("A %s with this identifier already exists", entityName)

	case NotNullViolation:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName == "" {
			fieldName = "field"
		}
		return fmt.Sprintf("The %s is required", fieldName)

	case CheckViolation:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName != "" {
			return fmt.Sprintf("The %s value does not meet required conditions", fieldName)
		}
		return "One or more values do not meet required conditions"

	default:
		return "An error occurred while processing your request"
	}
}

// getEntityName tries to infer an entity name from table/column data.
//
// Priority rules:
//  1. If column ends with "_id", use that base name ("crew_id" -> "Crew").
//  2. Otherwise use table name, singularized if it ends with "s".
//  3. Otherwise fallback to "record".
func getEntityName(tableName, columnName string) string {
	if columnName != "" && strings.HasSuffix(strings.ToLower(columnName), "_id") {
		entity := strings.TrimSuffix(strings.ToLower(columnName), "_id")
		return humanizeText(entity)
	}

	if tableName != "" {
		entity := tableName
		if strings.HasSuffix(entity, "s") && len(entity) > 1 {
			entity = entity[:len(entity)-1]
		}
		return humanizeText(entity)
	}

	return "record"
}

// humanizeText converts snake_case into Title Case: "crew_name" -> "Crew Name".
func humanizeText(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

var uniqueKeySuffix = regexp.MustCompile(`_([^_]+)_(?:key|ukey)$`)

// extractColumnForUniqueViolation tries to infer the column name from a unique constraint name.
//
// It supports two conventions:
//
//  1. "unique_<table>_<column>"
//     Example: unique_mission_name -> "name"
//
//  2. "<table>_<column>_(key|ukey)"
//     Example: mission_name_key -> "name"
func extractColumnForUniqueViolation(constraintName string) string {
	if constraintName == "" {
		return ""
	}

	if strings.HasPrefix(constraintName, "unique_") {
		parts := strings.Split(constraintName, "_")
		if len(parts) >= 3 {
			return parts[len(parts)-1]
		}
	}

	matches := uniqueKeySuffix.FindStringSubmatch(constraintName)
	if len(matches) > 1 {
		return matches[1]
	}

	return ""
}

// HandleError converts a repository or database error into an application-level error.
//
// Output:
//   - *errs.HTTPError: returned unchanged
//   - *errs.NotFoundError: 404 with <ENTITY>_NOT_FOUND
//   - *errs.NoFieldsError: 400 with NO_FIELDS_TO_UPDATE
//   - *errs.ConnectionError: 503
//   - PostgreSQL / SQLite constraint errors: 400 with a generated code
//   - ErrNoRows: 404
//   - anything else: 500
//
// This function is intended to be called in services after a repository call fails.
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	var notFound *errs.NotFoundError
	if errors.As(err, &notFound) {
		entity := notFound.Entity
		if entity == "" {
			entity = "resource"
		}
		code := errs.MakeUpperCaseWithUnderscores(entity) + "_NOT_FOUND"
		return errs.NewNotFoundError(notFound.Error(), true, &code)
	}

	var noFields *errs.NoFieldsError
	if errors.As(err, &noFields) {
		code := "NO_FIELDS_TO_UPDATE"
		return errs.NewBadRequestError(noFields.Error(), true, &code, nil, nil)
	}

	var connErr *errs.ConnectionError
	if errors.As(err, &connErr) {
		return errs.NewServiceUnavailableError()
	}

	if sqlErr := convert(err); sqlErr != nil {
		errorCode := generateErrorCode(sqlErr.TableName, sqlErr.Code)
		userMessage := formatUserFriendlyMessage(sqlErr)

		switch sqlErr.Code {
		case ForeignKeyViolation:
			return errs.NewBadRequestError(userMessage, false, &errorCode, nil, nil)

		case UniqueViolation:
			columnName := extractColumnForUniqueViolation(sqlErr.ConstraintName)
			if columnName == "" {
				columnName = sqlErr.ColumnName
			}
			if columnName != "" {
				userMessage = strings.ReplaceAll(userMessage, "identifier", humanizeText(columnName))
			}
			return errs.NewBadRequestError(userMessage, true, &errorCode, nil, nil)

		case NotNullViolation:
			fieldErrors := []errs.FieldError{
				{
					Field: strings.ToLower(sqlErr.ColumnName),
					Error: "is required",
				},
			}
			return errs.NewBadRequestError(userMessage, true, &errorCode, fieldErrors, nil)

		case CheckViolation:
			return errs.NewBadRequestError(userMessage, true, &errorCode, nil, nil)

		default:
			return errs.NewInternalServerError()
		}
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return errs.NewNotFoundError("Resource not found", false, nil)
	}

	return errs.NewInternalServerError()
}

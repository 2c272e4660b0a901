package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/library-engine/internal/domain"
	customError "github.com/segyhp/library-engine/pkg/errors"
	"github.com/segyhp/library-engine/pkg/response"
)

// headers carrying the request-scoped identity; a stand-in for the auth
// layer this service deliberately does not own.
const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
)

// newValidator builds a validator that understands decimal fields.
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("decimal_gt", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(float64)
		if !ok {
			return false
		}
		param, err := strconv.ParseFloat(fl.Param(), 64)
		if err != nil {
			return false
		}
		return value > param
	})

	_ = v.RegisterValidation("decimal_gte", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(float64)
		if !ok {
			return false
		}
		param, err := strconv.ParseFloat(fl.Param(), 64)
		if err != nil {
			return false
		}
		return value >= param
	})

	return v
}

// actorFromRequest extracts the authenticated identity the upstream
// gateway put on the request.
func actorFromRequest(r *http.Request) (domain.Actor, error) {
	id, err := uuid.Parse(r.Header.Get(headerActorID))
	if err != nil {
		return domain.Actor{}, customError.WrapValidation("missing or malformed X-Actor-ID header", err)
	}

	role := r.Header.Get(headerActorRole)
	if !domain.IsValidRole(role) {
		return domain.Actor{}, customError.WrapValidation("missing or unknown X-Actor-Role header", nil)
	}

	return domain.Actor{UserID: id, Role: role}, nil
}

// writeError maps a business error code onto the HTTP status taxonomy.
func writeError(w http.ResponseWriter, err error) {
	code := customError.CodeOf(err)

	var status int
	switch code {
	case customError.ErrCodeValidation:
		status = http.StatusBadRequest
	case customError.ErrCodeBookNotFound,
		customError.ErrCodeReservationNotFound,
		customError.ErrCodeLoanNotFound,
		customError.ErrCodePenaltyNotFound:
		status = http.StatusNotFound
	case customError.ErrCodeNotEligible:
		status = http.StatusForbidden
	case customError.ErrCodeDuplicateISBN,
		customError.ErrCodeDuplicateReservation,
		customError.ErrCodeStateConflict:
		status = http.StatusConflict
	case customError.ErrCodeNoCopiesAvailable,
		customError.ErrCodeNoPhysicalCopy,
		customError.ErrCodeStockBelowBorrowed,
		customError.ErrCodeHasActiveLoans,
		customError.ErrCodeLoanLimitReached,
		customError.ErrCodeReservationExpired,
		customError.ErrCodeNotPending:
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
	}

	response.Error(w, status, code, messageOf(err), nil)
}

// messageOf returns the business message without leaking raw database
// errors into responses.
func messageOf(err error) string {
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return be.Message
	}
	return "internal error"
}

package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/apierror"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/apperror"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal validates as a number so min/gt/required work on it.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// report JSON names instead of Go field names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// bindAndValidate binds the JSON body and runs the validator tags. On
// failure the response is already written and the caller must return.
func bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apperror.Wrap(apperror.CodeValidacao, err, "JSON inválido"))
		return false
	}
	return validateStruct(c, req)
}

func bindQueryAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		respondError(c, apperror.Wrap(apperror.CodeValidacao, err, "parâmetros inválidos"))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req any) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondError(c, apperror.Wrap(apperror.CodeValidacao, err, "dados inválidos"))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	respondError(c, apperror.New(apperror.CodeValidacao, "dados inválidos").WithDetails(fields))
	return false
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperror.Newf(apperror.CodeValidacao, "%s inválido", name))
		return uuid.Nil, false
	}
	return id, true
}

// respondError writes the envelope for err. Internal errors are attached to
// the context so the error middleware logs them.
func respondError(c *gin.Context, err error) {
	status, body := apierror.FromError(err)
	if status >= 500 {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

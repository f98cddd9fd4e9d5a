// Package apperror carries the typed errors the service layer returns.
// Handlers translate them into HTTP responses through MetadataFor.
package apperror

import (
	stdErrors "errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

type Code string

const (
	CodeEstoqueInsuficiente  Code = "ESTOQUE_INSUFICIENTE"
	CodeTransicaoInvalida    Code = "TRANSICAO_INVALIDA"
	CodeNaoEncontrado        Code = "NAO_ENCONTRADO"
	CodeValidacao            Code = "VALIDACAO"
	CodeConflito             Code = "CONFLITO"
	CodeConfiguracaoInvalida Code = "CONFIGURACAO_INVALIDA"
	CodeInterno              Code = "INTERNO"
)

type Metadata struct {
	HTTPStatus     int
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeEstoqueInsuficiente: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "estoque insuficiente",
		DetailsAllowed: true,
	},
	CodeTransicaoInvalida: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "transição de etapa inválida",
		DetailsAllowed: true,
	},
	CodeNaoEncontrado: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "registro não encontrado",
	},
	CodeValidacao: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "dados inválidos",
		DetailsAllowed: true,
	},
	CodeConflito: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "o lote foi alterado por outra operação",
	},
	CodeConfiguracaoInvalida: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "configuração de produto inválida",
	},
	CodeInterno: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "erro interno do servidor",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInterno]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInterno
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts the typed error from a chain, nil when there is none.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// FaltaEstoque describes the shortfall behind an ESTOQUE_INSUFICIENTE.
type FaltaEstoque struct {
	Item       string          `json:"item"`
	Unidade    string          `json:"unidade,omitempty"`
	Necessario decimal.Decimal `json:"necessario"`
	Disponivel decimal.Decimal `json:"disponivel"`
	Falta      decimal.Decimal `json:"falta"`
}

// EstoqueInsuficiente builds the error naming the item and its shortfall.
func EstoqueInsuficiente(item, unidade string, necessario, disponivel decimal.Decimal) *Error {
	falta := necessario.Sub(disponivel)
	msg := fmt.Sprintf("estoque insuficiente de %s: faltam %s", item, falta.String())
	if unidade != "" {
		msg += " " + unidade
	}
	return New(CodeEstoqueInsuficiente, msg).WithDetails(FaltaEstoque{
		Item:       item,
		Unidade:    unidade,
		Necessario: necessario,
		Disponivel: disponivel,
		Falta:      falta,
	})
}

// NaoEncontrado is the NotFound error for an entity kind.
func NaoEncontrado(entidade string) *Error {
	return Newf(CodeNaoEncontrado, "%s não encontrado", entidade)
}

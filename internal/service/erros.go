package service

import (
	"errors"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/apperror"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// traduzir maps repository sentinels onto typed errors; typed errors and
// anything unknown pass through.
func traduzir(err error, entidade string) error {
	switch {
	case err == nil:
		return nil
	case apperror.As(err) != nil:
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NaoEncontrado(entidade)
	case errors.Is(err, repository.ErrConflito):
		return apperror.Wrap(apperror.CodeConflito, err,
			"o registro foi alterado por outra operação; recarregue e tente novamente")
	default:
		return err
	}
}

func parseID(raw, campo string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Newf(apperror.CodeValidacao, "%s inválido", campo)
	}
	return id, nil
}

func parseIDOpcional(raw *string, campo string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := parseID(*raw, campo)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Package settings reads and writes runtime configuration kept in the system_config table.
package settings

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Keys persisted in system_config.
const (
	KeyAutoCloseEnabled       = "CIERRE_AUTOMATICO_HABILITADO"
	KeyAutoCloseGraceDays     = "DIAS_PARA_CIERRE_AUTOMATICO"
	KeyAutoCloseFrequency     = "FRECUENCIA_CIERRE_AUTOMATICO"
	KeyAutoCloseHour          = "HORARIO_CIERRE_AUTOMATICO"
	KeyAutoCloseMinute        = "MINUTOS_CIERRE_AUTOMATICO"
	KeyTicketNumberPrefix     = "PREFIJO_NUMERO_TICKET"
	KeyTicketNumberDigits     = "DIGITOS_NUMERO_TICKET"
	KeyCorrelativeReset       = "TICKET_CORRELATIVO_RESETEADO"
	KeyCorrelativeBeforeReset = "ULTIMO_CORRELATIVO_ANTES_RESET"
	KeyAutoCloseTotal         = "TOTAL_CIERRES_AUTOMATICOS"
	KeyAutoCloseLastRun       = "ULTIMA_EJECUCION_CIERRE_AUTOMATICO"
)

// Store returns typed values with caller-supplied defaults.
// Missing rows and unparsable values fall back to the default.
type Store struct {
	repo   repository.SystemSettingRepository
	logger *zap.Logger
}

func NewStore(repo repository.SystemSettingRepository, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{repo: repo, logger: logger}
}

func (s *Store) GetString(ctx context.Context, key, def string) string {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		if !repository.IsNotFound(err) {
			s.logger.Warn("read setting failed", zap.String("key", key), zap.Error(err))
		}
		return def
	}
	return strings.TrimSpace(setting.Value)
}

func (s *Store) GetInt(ctx context.Context, key string, def int) int {
	raw := s.GetString(ctx, key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.Warn("setting is not an integer", zap.String("key", key), zap.String("value", raw))
		return def
	}
	return v
}

func (s *Store) GetBool(ctx context.Context, key string, def bool) bool {
	raw := s.GetString(ctx, key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		s.logger.Warn("setting is not a boolean", zap.String("key", key), zap.String("value", raw))
		return def
	}
	return v
}

// Set upserts key, keeping any existing description.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.repo.Upsert(ctx, &domain.SystemSetting{Key: key, Value: value})
}

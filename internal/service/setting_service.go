package service

import (
	"context"
	"errors"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/examgate/examgate-backend/internal/scoring"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SettingService manages runtime-adjustable settings. Its main consumer
// is scoring: the grade scale comes from the settings table when an
// override exists, otherwise from configuration.
type SettingService struct {
	settingRepo  *repository.SettingRepository
	rdb          *redis.Client
	defaultScale scoring.GradeScale
	log          zerolog.Logger
}

func NewSettingService(settingRepo *repository.SettingRepository, rdb *redis.Client, defaultBands string, log zerolog.Logger) *SettingService {
	scale, err := scoring.ParseScale(defaultBands)
	if err != nil {
		log.Warn().Err(err).Str("spec", defaultBands).Msg("Invalid GRADE_BANDS config, using stock scale")
		scale = scoring.DefaultScale()
	}
	return &SettingService{
		settingRepo:  settingRepo,
		rdb:          rdb,
		defaultScale: scale,
		log:          log.With().Str("component", "setting_service").Logger(),
	}
}

// Scale returns the active grade scale: the settings-table override when
// present and valid, the configured default otherwise. The override is
// cached in Redis; scale resolution must never fail a submission, so
// every error degrades to the default.
func (s *SettingService) Scale(ctx context.Context) scoring.GradeScale {
	spec, err := s.rdb.Get(ctx, config.CacheKey.GradeBandsKey()).Result()
	if errors.Is(err, redis.Nil) {
		setting, dbErr := s.settingRepo.GetByKey(ctx, model.SettingGradeBands)
		if errors.Is(dbErr, pgx.ErrNoRows) {
			return s.defaultScale
		}
		if dbErr != nil {
			s.log.Warn().Err(dbErr).Msg("Grade bands lookup failed, using default scale")
			return s.defaultScale
		}
		spec = setting.Value
		_ = s.rdb.Set(ctx, config.CacheKey.GradeBandsKey(), spec, 0)
	} else if err != nil {
		s.log.Warn().Err(err).Msg("Grade bands cache read failed, using default scale")
		return s.defaultScale
	}

	scale, err := scoring.ParseScale(spec)
	if err != nil {
		s.log.Warn().Err(err).Str("spec", spec).Msg("Invalid grade bands override, using default scale")
		return s.defaultScale
	}
	return scale
}

func (s *SettingService) GetAllSettings(ctx context.Context) (map[string]string, error) {
	settingsList, err := s.settingRepo.GetAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get all settings")
		return nil, err
	}

	settingsMap := make(map[string]string)
	for _, setting := range settingsList {
		settingsMap[setting.Key] = setting.Value
	}
	return settingsMap, nil
}

// UpdateSetting validates and upserts one setting. Grade band overrides
// must parse before they are accepted.
func (s *SettingService) UpdateSetting(ctx context.Context, key, value string) error {
	if key == model.SettingGradeBands {
		if _, err := scoring.ParseScale(value); err != nil {
			return err
		}
	}
	if err := s.settingRepo.Upsert(ctx, key, value); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to update setting")
		return err
	}
	if key == model.SettingGradeBands {
		if err := s.rdb.Set(ctx, config.CacheKey.GradeBandsKey(), value, 0).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to refresh grade bands cache")
		}
	}
	return nil
}

func (s *SettingService) GetSettingByKey(ctx context.Context, key string) (string, error) {
	setting, err := s.settingRepo.GetByKey(ctx, key)
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/util"
)

// GetSystemSetting returns nil without error when the setting is not stored.
func (s *Store) GetSystemSetting(ctx context.Context, name string) (*model.SystemSetting, error) {
	if cache, ok := s.SystemSettingCache.Load(name); ok {
		return cache.(*model.SystemSetting), nil
	}

	setting := &model.SystemSetting{}
	stmt := `SELECT name, value, description FROM system_setting WHERE name = ?`
	if err := s.db.QueryRowContext(ctx, stmt, name).Scan(&setting.Name, &setting.Value, &setting.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get system setting")
	}

	s.SystemSettingCache.Store(name, setting)
	return setting, nil
}

func (s *Store) UpsertSystemSetting(ctx context.Context, setting *model.SystemSetting) (*model.SystemSetting, error) {
	stmt := `
	INSERT INTO system_setting (
		name, value, description
	)
	VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE
	SET
		value = EXCLUDED.value,
		description = EXCLUDED.description
	`
	if _, err := s.db.ExecContext(ctx, stmt, setting.Name, setting.Value, setting.Description); err != nil {
		return nil, errors.Wrap(err, "failed to insert/update system setting")
	}
	s.SystemSettingCache.Store(setting.Name, setting)
	return setting, nil
}

// GetOrCreateSecuritySetting loads the security setting, generating and
// persisting a JWT secret the first time.
func (s *Store) GetOrCreateSecuritySetting(ctx context.Context) (*model.SystemSettingSecurity, error) {
	systemSetting, err := s.GetSystemSetting(ctx, model.SettingTypeSecurity)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get security settings")
	}

	securitySetting := &model.SystemSettingSecurity{}
	if systemSetting != nil {
		securitySetting, err = systemSetting.GetSecurity()
		if err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal security settings")
		}
	}
	if securitySetting.JWTSecret != "" {
		return securitySetting, nil
	}

	log.Debug("No JWT secret found, create it")
	secret, err := util.RandomString(48)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate JWT secret")
	}
	securitySetting.JWTSecret = secret
	if _, err := s.UpsertSystemSetting(ctx, &model.SystemSetting{
		Name:  model.SettingTypeSecurity,
		Value: securitySetting.ToJSON(),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to upsert security settings")
	}
	log.Debug("Security setting created", zap.String("type", model.SettingTypeSecurity))
	return securitySetting, nil
}

package model

import "github.com/goccy/go-json"

const (
	SettingTypeSecurity = "SETTINGS_SECURITY"
)

type SystemSetting struct {
	Name        string `json:"name,omitempty"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
}

type FindSystemSetting struct {
	Name *string
}

type SystemSettingSecurity struct {
	JWTSecret string `json:"jwt_secret,omitempty"`
}

func (s *SystemSettingSecurity) ToJSON() string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (s *SystemSetting) GetSecurity() (*SystemSettingSecurity, error) {
	var security SystemSettingSecurity
	err := json.Unmarshal([]byte(s.Value), &security)
	if err != nil {
		return nil, err
	}
	return &security, nil
}

// MigrationHistory records each schema version applied to the database.
type MigrationHistory struct {
	Version   string
	CreatedTs int64
}

type FindMigrationHistory struct {
}

type UpsertMigrationHistory struct {
	Version string
}

package models

import (
	"encoding/json"
	"fmt"
)

// Category names one of the fixed sections of an API's settings document
type Category string

const (
	CategoryGlobalSettings Category = "globalSettings"
	CategoryAuthentication Category = "authentication"
	CategorySecurity       Category = "security"
	CategoryLogging        Category = "logging"
	CategoryPerformance    Category = "performance"
	CategoryVersionControl Category = "versionControl"
	CategoryErrorHandling  Category = "errorHandling"
)

var Categories = []Category{
	CategoryGlobalSettings,
	CategoryAuthentication,
	CategorySecurity,
	CategoryLogging,
	CategoryPerformance,
	CategoryVersionControl,
	CategoryErrorHandling,
}

func ParseCategory(name string) (Category, error) {
	for _, c := range Categories {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid settings category: %q", name)
}

type Settings struct {
	GlobalSettings GlobalSettings `json:"globalSettings"`
	Authentication Authentication `json:"authentication"`
	Security       Security       `json:"security"`
	Logging        LoggingPolicy  `json:"logging"`
	Performance    Performance    `json:"performance"`
	VersionControl VersionControl `json:"versionControl"`
	ErrorHandling  ErrorHandling  `json:"errorHandling"`
}

type GlobalSettings struct {
	BaseURL         string     `json:"baseUrl"`
	TimeoutDuration float64    `json:"timeoutDuration"` // seconds
	MaxAPICallLimit int        `json:"maxApiCallLimit"` // dispatches per hour, 0 = unlimited
	Pagination      Pagination `json:"pagination"`
}

type Pagination struct {
	DefaultPageSize int `json:"defaultPageSize"`
}

type Authentication struct {
	TokenExpiry    int      `json:"tokenExpiry"`
	KeyRotation    string   `json:"keyRotation"`
	OAuthProviders []string `json:"oauthProviders"`
}

type Security struct {
	IPWhitelist  []string     `json:"ipWhitelist"`
	IPBlacklist  []string     `json:"ipBlacklist"`
	CORS         CORS         `json:"cors"`
	RateLimiting RateLimiting `json:"rateLimiting"`
	Encryption   Encryption   `json:"encryption"`
}

type CORS struct {
	AllowedOrigins []string `json:"allowedOrigins"`
	AllowedMethods []string `json:"allowedMethods"`
	AllowedHeaders []string `json:"allowedHeaders"`
}

// Dispatches per minute; 0 disables the limit
type RateLimiting struct {
	Global  int `json:"global"`
	PerUser int `json:"perUser"`
}

type Encryption struct {
	Status    string `json:"status"`
	Algorithm string `json:"algorithm"`
}

type LoggingPolicy struct {
	Status          string `json:"status"`
	RetentionPeriod int    `json:"retentionPeriod"` // days
	StorageLocation string `json:"storageLocation"`
}

type Performance struct {
	Caching       Caching       `json:"caching"`
	LoadBalancing LoadBalancing `json:"loadBalancing"`
}

type Caching struct {
	Status          string `json:"status"`
	Expiry          int    `json:"expiry"`
	StorageLocation string `json:"storageLocation"`
}

type LoadBalancing struct {
	Status       string `json:"status"`
	HealthChecks string `json:"healthChecks"`
}

type VersionControl struct {
	CurrentVersion string      `json:"currentVersion"`
	Versioning     string      `json:"versioning"`
	Deprecation    Deprecation `json:"deprecation"`
}

type Deprecation struct {
	DeprecatedVersions []string `json:"deprecatedVersions"`
	DeprecationDate    string   `json:"deprecationDate"`
}

type ErrorHandling struct {
	CustomErrors       string            `json:"customErrors"`
	DefaultErrorFormat string            `json:"defaultErrorFormat"`
	ErrorCodes         map[string]string `json:"errorCodes"`
}

// Returns the settings record used when an API is created without one
func DefaultSettings() Settings {
	return Settings{
		GlobalSettings: GlobalSettings{
			BaseURL:         "https://api.example.com",
			TimeoutDuration: 30,
			MaxAPICallLimit: 1000,
			Pagination:      Pagination{DefaultPageSize: 50},
		},
		Authentication: Authentication{
			TokenExpiry:    24,
			KeyRotation:    StatusEnabled,
			OAuthProviders: []string{"Google", "Facebook"},
		},
		Security: Security{
			IPWhitelist: []string{"192.168.1.1", "192.168.1.2"},
			IPBlacklist: []string{"192.168.1.100"},
			CORS: CORS{
				AllowedOrigins: []string{"https://www.example.com"},
				AllowedMethods: []string{"get", "post", "put"},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
			},
			RateLimiting: RateLimiting{Global: 1000, PerUser: 100},
			Encryption:   Encryption{Status: StatusEnabled, Algorithm: "AES"},
		},
		Logging: LoggingPolicy{
			Status:          StatusEnabled,
			RetentionPeriod: 180,
			StorageLocation: "cloud",
		},
		Performance: Performance{
			Caching:       Caching{Status: StatusEnabled, Expiry: 60, StorageLocation: "local"},
			LoadBalancing: LoadBalancing{Status: StatusEnabled, HealthChecks: StatusEnabled},
		},
		VersionControl: VersionControl{
			CurrentVersion: "v1",
			Versioning:     StatusEnabled,
			Deprecation: Deprecation{
				DeprecatedVersions: []string{"v1", "v0"},
				DeprecationDate:    "2025-01-01",
			},
		},
		ErrorHandling: ErrorHandling{
			CustomErrors:       StatusEnabled,
			DefaultErrorFormat: "json",
			ErrorCodes: map[string]string{
				"400": "Invalid Request",
				"401": "Unauthorized",
				"500": "Internal Server Error",
			},
		},
	}
}

// Returns the typed record held under category c
func (s Settings) Section(c Category) any {
	switch c {
	case CategoryGlobalSettings:
		return s.GlobalSettings
	case CategoryAuthentication:
		return s.Authentication
	case CategorySecurity:
		return s.Security
	case CategoryLogging:
		return s.Logging
	case CategoryPerformance:
		return s.Performance
	case CategoryVersionControl:
		return s.VersionControl
	case CategoryErrorHandling:
		return s.ErrorHandling
	default:
		return nil
	}
}

// Decodes raw into the record for category c, replacing it wholesale
func (s *Settings) ReplaceSection(c Category, raw []byte) error {
	var target any
	switch c {
	case CategoryGlobalSettings:
		s.GlobalSettings = GlobalSettings{}
		target = &s.GlobalSettings
	case CategoryAuthentication:
		s.Authentication = Authentication{}
		target = &s.Authentication
	case CategorySecurity:
		s.Security = Security{}
		target = &s.Security
	case CategoryLogging:
		s.Logging = LoggingPolicy{}
		target = &s.Logging
	case CategoryPerformance:
		s.Performance = Performance{}
		target = &s.Performance
	case CategoryVersionControl:
		s.VersionControl = VersionControl{}
		target = &s.VersionControl
	case CategoryErrorHandling:
		s.ErrorHandling = ErrorHandling{}
		target = &s.ErrorHandling
	default:
		return fmt.Errorf("invalid settings category: %q", c)
	}
	return json.Unmarshal(raw, target)
}

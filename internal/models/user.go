package models

// Owner roles
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

// Owner is the operator account every collection is scoped under
type Owner struct {
	ID                    string  `json:"id" db:"id"`
	Email                 string  `json:"email" db:"email"`
	Password              string  `json:"-" db:"password"` // Never return password in JSON
	Name                  string  `json:"name" db:"name"`
	Role                  string  `json:"role" db:"role"`
	HasSMSFeature         bool    `json:"has_sms_feature" db:"has_sms_feature"`
	ReportingPasswordHash *string `json:"-" db:"reporting_password_hash"`
	CreatedAt             int64   `json:"created_at" db:"created_at"`
	UpdatedAt             int64   `json:"updated_at" db:"updated_at"`
}

type OwnerResponse struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	HasSMSFeature     bool   `json:"has_sms_feature"`
	ReportingPassword bool   `json:"reporting_password_set"`
	CreatedAt         int64  `json:"created_at"`
}

func (o *Owner) ToOwnerResponse() OwnerResponse {
	return OwnerResponse{
		ID:                o.ID,
		Email:             o.Email,
		Name:              o.Name,
		Role:              o.Role,
		HasSMSFeature:     o.HasSMSFeature,
		ReportingPassword: o.ReportingPasswordHash != nil && *o.ReportingPasswordHash != "",
		CreatedAt:         o.CreatedAt,
	}
}

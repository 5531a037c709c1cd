package domain

// Profile is an authenticated identity. Bots are ordinary profiles
// with the IsBot flag set at creation; the bot_ username prefix is a
// display convention only, never queried.
type Profile struct {
	BaseModel
	Username string `gorm:"type:varchar(100);not null;uniqueIndex:idx_profiles_username" json:"username"`
	Email    string `gorm:"type:varchar(255)" json:"email,omitempty"`
	IsBot    bool   `gorm:"not null;default:false;index:idx_profiles_is_bot" json:"is_bot"`
	IsAdmin  bool   `gorm:"not null;default:false" json:"is_admin"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Package domain defines the persistence models for gyms, check-ins, and
// users. These types are mapped with GORM and form the core data layer of
// the check-in application.
package domain

import "time"

// User roles. Role is a plain capability tag consumed by the service layer;
// there is no user/admin type hierarchy.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Gym represents a fitness location members can check in at. Coordinates are
// stored in decimal degrees and are validated at creation time by the service
// layer (latitude in [-90, 90], longitude in [-180, 180]).
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Title: display name, 2–100 chars after trimming.
//   - Description: optional free text, at most 500 chars.
//   - Phone: optional contact number (loose digit pattern).
//   - Latitude / Longitude: geofence center for check-ins.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Gym struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Title       string    `json:"title"       gorm:"type:varchar(100);not null;index:idx_gym_title"`
	Description *string   `json:"description,omitempty" gorm:"type:varchar(500)"`
	Phone       *string   `json:"phone,omitempty"       gorm:"type:varchar(32)"`
	Latitude    float64   `json:"latitude"    gorm:"not null"`
	Longitude   float64   `json:"longitude"   gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Gym.
func (Gym) TableName() string { return "gyms" }

// CheckIn records a member's visit to a gym. A check-in starts pending
// (ValidatedAt nil) and may be confirmed exactly once by an administrator
// after the validation window has elapsed.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: member who checked in; indexed for history queries.
//   - GymID: foreign key to the visited gym (indexed).
//   - CreatedAt: moment of check-in, immutable, indexed for range scans.
//   - ValidatedAt: set once by the validation transition, nil while pending.
//   - Gym: FK association for optional enrichment in history responses.
type CheckIn struct {
	ID          string     `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID      string     `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_checkins,priority:1"`
	GymID       string     `json:"gym_id"     gorm:"type:char(36);not null;index"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index:idx_user_checkins,priority:2"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`

	// Gym is the visited location. Check-ins are cascade-deleted if their
	// gym is removed.
	Gym Gym `json:"-" gorm:"foreignKey:GymID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for CheckIn.
func (CheckIn) TableName() string { return "check_ins" }

// Validated reports whether the check-in has been confirmed by an admin.
func (c *CheckIn) Validated() bool { return c.ValidatedAt != nil }

// User is a registered member or administrator. The service layer only reads
// users; registration and authentication live outside this module.
type User struct {
	ID        string    `json:"id"    gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"  gorm:"type:varchar(255);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Role      string    `json:"role"  gorm:"type:varchar(8);not null;default:'USER';check:role IN ('USER','ADMIN')"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// IsAdmin reports whether the user carries the ADMIN capability.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

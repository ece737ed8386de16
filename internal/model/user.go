package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Email is the login key; Username is a unique display handle.
// Handlers define separate response types for the public and private
// profile views, so no json tags are declared here.
//
// Fields:
//
//	ID                    – primary key identifier.
//	Username              – unique user name.
//	Email                 – unique email address, used for login.
//	PasswordHash          – bcrypt hashed password.
//	FirstName, LastName   – optional personal names.
//	Country, City, Phone  – optional contact details.
//	Role                  – "user" or "manager".
//	IsStaff, IsSuperuser  – administrative flags, equivalent to manager.
//	IsActive              – false until the email address is verified.
//	IsBlocked             – blocked users are denied every operation.
//	IsVerified            – email verification completed.
//	Token                 – one-time verification token (nil once consumed).
//	OrganizationID        – network node the user belongs to (nullable).
//	TelegramChatID        – unique Telegram chat id for notifications (nullable).
//	TelegramUsername      – Telegram handle (nullable).
//	TelegramNotifications – whether Telegram notifications are enabled.
//	DateJoined            – registration timestamp.
type User struct {
	ID                    uint64
	Username              string
	Email                 string
	PasswordHash          string
	FirstName             string
	LastName              string
	Country               *string
	City                  *string
	Phone                 *string
	Role                  string
	IsStaff               bool
	IsSuperuser           bool
	IsActive              bool
	IsBlocked             bool
	IsVerified            bool
	Token                 *string
	OrganizationID        *uint64
	TelegramChatID        *int64
	TelegramUsername      *string
	TelegramNotifications bool
	DateJoined            time.Time
}

// ProfileUpdate holds the self-editable profile fields.  Nil fields are left
// untouched.
type ProfileUpdate struct {
	Username  *string
	FirstName *string
	LastName  *string
	Country   *string
	City      *string
	Phone     *string
}

// TelegramLink holds the Telegram notification settings of a user.
type TelegramLink struct {
	ChatID        *int64
	Username      *string
	Notifications bool
}

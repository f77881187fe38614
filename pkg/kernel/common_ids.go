package kernel

import (
	"strconv"
)

type UserID int64

func NewUserID(id int64) UserID { return UserID(id) }
func (u UserID) Int64() int64   { return int64(u) }
func (u UserID) String() string { return strconv.FormatInt(int64(u), 10) }
func (u UserID) IsEmpty() bool  { return u <= 0 }

type TenantID int64

func NewTenantID(id int64) TenantID { return TenantID(id) }
func (t TenantID) Int64() int64     { return int64(t) }
func (t TenantID) String() string   { return strconv.FormatInt(int64(t), 10) }
func (t TenantID) IsEmpty() bool    { return t <= 0 }

type DomainID int64

func (d DomainID) String() string { return strconv.FormatInt(int64(d), 10) }
func (d DomainID) IsEmpty() bool  { return d <= 0 }

type UserTenantID int64

func (a UserTenantID) String() string { return strconv.FormatInt(int64(a), 10) }
func (a UserTenantID) IsEmpty() bool  { return a <= 0 }

// ParseID parses a positive decimal identifier as used in paths and token subjects.
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

package models

// Property and Profile are read-only views of tables owned by the listing and
// account services. They are not migrated here.
type Property struct {
	ID       string `gorm:"column:id;type:varchar(64);primary_key"`
	HostID   string `gorm:"column:host_id;type:varchar(64)"`
	Title    string `gorm:"column:title;type:varchar(255)"`
	Location string `gorm:"column:location;type:varchar(255)"`
}

func (Property) TableName() string { return "properties" }

type Profile struct {
	UserID    string `gorm:"column:user_id;type:varchar(64);primary_key"`
	Email     string `gorm:"column:email;type:varchar(255)"`
	FirstName string `gorm:"column:first_name;type:varchar(128)"`
	LastName  string `gorm:"column:last_name;type:varchar(128)"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) FullName() string {
	switch {
	case p == nil:
		return ""
	case p.LastName == "":
		return p.FirstName
	case p.FirstName == "":
		return p.LastName
	}
	return p.FirstName + " " + p.LastName
}
